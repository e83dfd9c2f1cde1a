// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// frameworkDeps maps a package.json dependency to its built-in framework,
// in detection priority order.
var frameworkDeps = []struct {
	dep       string
	framework string
}{
	{"next", "next"},
	{"@nestjs/core", "nest"},
	{"vite", "vite"},
}

// DetectFramework inspects package.json in root and returns the framework
// of the first known dependency, or "" when there is none.
func DetectFramework(root string) (string, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	err := decodeFile(filepath.Join(root, "package.json"), &pkg)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("package.json: %w", err)
	}
	for _, fd := range frameworkDeps {
		if _, ok := pkg.Dependencies[fd.dep]; ok {
			return fd.framework, nil
		}
		if _, ok := pkg.DevDependencies[fd.dep]; ok {
			return fd.framework, nil
		}
	}
	return "", nil
}

// Scaffold builds the initial config for root: one framework app when
// package.json names a known framework, otherwise no apps.
func Scaffold(root string) (*Config, error) {
	framework, err := DetectFramework(root)
	if err != nil {
		return nil, err
	}
	cfg := &Config{BranchPrefix: DefaultBranchPrefix, MainBranch: "main"}
	if framework != "" {
		cfg.Apps = []AppConfig{{Name: framework, Framework: framework}}
	}
	return cfg, nil
}
