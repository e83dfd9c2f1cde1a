// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Frameworks with built-in adapters.
var knownFrameworks = map[string]bool{
	"next": true,
	"vite": true,
	"nest": true,
}

// signalNames are the signals accepted after the signal marker.
var signalNames = map[string]bool{
	"SIGTERM": true,
	"SIGKILL": true,
	"SIGINT":  true,
	"SIGHUP":  true,
	"SIGQUIT": true,
}

// Validator checks a loaded Config for mistakes the decoder cannot catch.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Errors []FieldError
}

// FieldError names one bad field.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty reports whether nothing was collected.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add records a problem with field.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate returns a *ValidationError when cfg has problems.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateBranches(cfg, errs)
	v.validateApps(cfg, errs)
	v.validateAPI(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

// ValidateProjects checks the projects registry.
func (v *Validator) ValidateProjects(pc *ProjectsConfig) error {
	errs := &ValidationError{}
	names := make(map[string]bool)
	for i, p := range pc.Projects {
		field := fmt.Sprintf("projects[%d]", i)
		if p.Name == "" {
			errs.Add(field+".name", "is required")
		} else if names[p.Name] {
			errs.Add(field+".name", fmt.Sprintf("duplicate project %q", p.Name))
		}
		names[p.Name] = true
		if p.Path == "" {
			errs.Add(field+".path", "is required")
		}
	}
	if pc.DefaultProject != "" && !names[pc.DefaultProject] {
		errs.Add("defaultProject", fmt.Sprintf("unknown project %q", pc.DefaultProject))
	}
	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateBranches(cfg *Config, errs *ValidationError) {
	if cfg.BranchPrefix != "" && !strings.HasSuffix(cfg.BranchPrefix, "/") {
		errs.Add("branchPrefix", "must end with /")
	}
	if strings.ContainsAny(cfg.MainBranch, " \t") {
		errs.Add("mainBranch", "must not contain whitespace")
	}
}

func (v *Validator) validateApps(cfg *Config, errs *ValidationError) {
	names := make(map[string]bool)
	for i, app := range cfg.Apps {
		field := fmt.Sprintf("apps[%d]", i)

		if app.Name == "" {
			errs.Add(field+".name", "is required")
		} else if names[app.Name] {
			errs.Add(field+".name", fmt.Sprintf("duplicate app %q", app.Name))
		}
		names[app.Name] = true

		if app.Framework != "" && !knownFrameworks[app.Framework] {
			errs.Add(field+".framework", fmt.Sprintf("unknown framework %q", app.Framework))
		}
		if app.Framework == "" && app.Start == "" {
			errs.Add(field+".start", "is required when no framework is set")
		}

		if sig, ok := app.StopSignal(); ok && !signalNames[sig] {
			errs.Add(field+".stop", fmt.Sprintf("unknown signal %q", sig))
		}
		if sig, ok := app.KillSignal(); ok && !signalNames[sig] {
			errs.Add(field+".kill", fmt.Sprintf("unknown signal %q", sig))
		}

		if app.ReadyPattern != "" {
			if _, err := regexp.Compile(app.ReadyPattern); err != nil {
				errs.Add(field+".readyPattern", fmt.Sprintf("invalid regex: %v", err))
			}
		}
	}
}

func (v *Validator) validateAPI(cfg *Config, errs *ValidationError) {
	switch cfg.API.TLS {
	case "", "tailscale":
	default:
		errs.Add("api.tls", fmt.Sprintf("unsupported mode %q", cfg.API.TLS))
	}
}
