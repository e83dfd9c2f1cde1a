// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles the projects registry and orchestrator configuration.
package config

import "strings"

const (
	// ProjectsFileName is the projects registry, kept at the project root.
	ProjectsFileName = ".parallel-projects.json"

	// ConfigFileName is the orchestrator config, kept at the project root.
	ConfigFileName = ".parallel.json"

	// DefaultBranchPrefix namespaces agent branches.
	DefaultBranchPrefix = "claude/"

	// SignalMarker prefixes a stop/kill value that means "signal the start
	// command's process group" instead of running a separate command.
	SignalMarker = "signal:"
)

// ProjectConfig identifies a git repository the orchestrator operates on.
type ProjectConfig struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	WorktreeDir string `json:"worktreeDir,omitempty"`
}

// ProjectsConfig is the on-disk shape of the projects registry.
type ProjectsConfig struct {
	Projects       []ProjectConfig `json:"projects"`
	DefaultProject string          `json:"defaultProject,omitempty"`
}

// Config is the orchestrator configuration for one project.
type Config struct {
	BranchPrefix        string      `json:"branchPrefix"`
	MainBranch          string      `json:"mainBranch"`
	Agent               AgentConfig `json:"agent"`
	Apps                []AppConfig `json:"apps,omitempty"`
	Install             string      `json:"install"`
	Migrate             string      `json:"migrate,omitempty"`
	DependencyManifests []string    `json:"dependencyManifests"`
	MigrationsDir       string      `json:"migrationsDir"`
	API                 APIConfig   `json:"api"`
}

// AgentConfig describes the coding-agent CLI launched in each session.
type AgentConfig struct {
	Command             string `json:"command"`
	DisplayName         string `json:"displayName"`
	SkipPermissionsFlag string `json:"skipPermissionsFlag"`
	ProcessName         string `json:"processName"`
}

// AppConfig declares how to run one auxiliary process.
type AppConfig struct {
	Name         string `json:"name"`
	Framework    string `json:"framework,omitempty"` // next, vite, nest
	Start        string `json:"start,omitempty"`
	Stop         string `json:"stop,omitempty"`
	Kill         string `json:"kill,omitempty"`
	ReadyPattern string `json:"readyPattern,omitempty"`
	Dir          string `json:"dir,omitempty"`
}

// StopSignal returns the signal name if Stop uses the signal marker.
func (a AppConfig) StopSignal() (string, bool) {
	return markerSignal(a.Stop)
}

// KillSignal returns the signal name if Kill uses the signal marker.
func (a AppConfig) KillSignal() (string, bool) {
	return markerSignal(a.Kill)
}

func markerSignal(v string) (string, bool) {
	if !strings.HasPrefix(v, SignalMarker) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(v, SignalMarker)), true
}

// APIConfig configures the optional status API.
type APIConfig struct {
	Listen string `json:"listen"`
	TLS    string `json:"tls,omitempty"` // "" or "tailscale"
}
