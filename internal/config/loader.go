// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the orchestrator config at path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied. A missing
// file is not an error: the defaults alone are returned.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// LoadProject loads the orchestrator config stored at a project root.
func (l *Loader) LoadProject(ctx context.Context, root string) (*Config, error) {
	return l.LoadWithDefaults(ctx, filepath.Join(root, ConfigFileName))
}

// Save writes cfg as indented JSON.
func (l *Loader) Save(path string, cfg *Config) error {
	return writeJSON(path, cfg)
}

// decodeFile parses HJSON (a superset of JSON) into v.
func decodeFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	// Round-trip through JSON for struct tags
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}
	if err := json.Unmarshal(jsonData, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	if cfg.BranchPrefix == "" {
		cfg.BranchPrefix = DefaultBranchPrefix
	}
	if cfg.MainBranch == "" {
		cfg.MainBranch = "main"
	}

	// Agent defaults
	if cfg.Agent.Command == "" {
		cfg.Agent.Command = "claude"
	}
	if cfg.Agent.DisplayName == "" {
		cfg.Agent.DisplayName = "Claude"
	}
	if cfg.Agent.SkipPermissionsFlag == "" {
		cfg.Agent.SkipPermissionsFlag = "--dangerously-skip-permissions"
	}
	if cfg.Agent.ProcessName == "" {
		cfg.Agent.ProcessName = filepath.Base(cfg.Agent.Command)
	}

	// Sync defaults
	if cfg.Install == "" {
		cfg.Install = "pnpm install"
	}
	if len(cfg.DependencyManifests) == 0 {
		cfg.DependencyManifests = []string{"package.json", "pnpm-lock.yaml"}
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	// App defaults: command apps signal their own process group
	for i := range cfg.Apps {
		if cfg.Apps[i].Stop == "" {
			cfg.Apps[i].Stop = SignalMarker + "SIGTERM"
		}
		if cfg.Apps[i].Kill == "" {
			cfg.Apps[i].Kill = SignalMarker + "SIGKILL"
		}
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = "127.0.0.1:7420"
	}
}
