// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/procs"
)

// Adapter is a uniform capability over one kind of dev-server process.
type Adapter interface {
	Name() string
	Kind() Kind
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Kill(ctx context.Context) error
	IsRunning(ctx context.Context) bool
}

// activeReporter is implemented by adapters whose IsRunning is stricter
// than "some process of theirs is alive".
type activeReporter interface {
	Active(ctx context.Context) bool
}

// Active reports whether any process belonging to a is alive, even one
// that is not ready yet.
func Active(ctx context.Context, a Adapter) bool {
	if r, ok := a.(activeReporter); ok {
		return r.Active(ctx)
	}
	return a.IsRunning(ctx)
}

// Kind is the closed set of built-in adapter variants.
type Kind int

const (
	KindNull Kind = iota
	KindNext
	KindVite
	KindNest
	KindCommand
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNext:
		return "next"
	case KindVite:
		return "vite"
	case KindNest:
		return "nest"
	case KindCommand:
		return "command"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// ExitFunc is called when an adapter-owned process exits without a stop
// having been requested. code is -1 when the process died from a signal.
type ExitFunc func(adapter string, code int)

// Env is what every adapter needs from its surroundings.
type Env struct {
	Dir       string
	Log       *AppLog
	Inspector procs.Inspector
	OnExit    ExitFunc

	// Killer terminates stale processes found by Inspector. Nil means
	// procs.OSKiller.
	Killer procs.Killer
}

func (e Env) killer() procs.Killer {
	if e.Killer == nil {
		return procs.OSKiller
	}
	return e.Killer
}

// Legacy script names, checked in the project root.
func legacyScripts() (start, kill string) {
	if runtime.GOOS == "windows" {
		return "run-dev.ps1", "kill-dev.ps1"
	}
	return "run-dev.sh", "kill-dev.sh"
}

// Select builds the active adapters. Declared apps win; otherwise a legacy
// startup script selects the script adapter; otherwise Null. Exactly one
// family is ever returned.
func Select(cfg *config.Config, env Env) []Adapter {
	if len(cfg.Apps) > 0 {
		adapters := make([]Adapter, 0, len(cfg.Apps))
		for _, app := range cfg.Apps {
			adapters = append(adapters, newConfigured(app, env))
		}
		return adapters
	}

	start, kill := legacyScripts()
	if _, err := os.Stat(filepath.Join(env.Dir, start)); err == nil {
		return []Adapter{NewScriptAdapter(env, start, kill)}
	}

	return []Adapter{NullAdapter{}}
}

func newConfigured(app config.AppConfig, env Env) Adapter {
	if app.Dir != "" && !filepath.IsAbs(app.Dir) {
		env.Dir = filepath.Join(env.Dir, app.Dir)
	} else if app.Dir != "" {
		env.Dir = app.Dir
	}

	switch FrameworkKind(app.Framework) {
	case KindNext, KindVite, KindNest:
		return NewFrameworkAdapter(FrameworkKind(app.Framework), app.Name, env)
	default:
		return NewCommandAdapter(app, env)
	}
}

// FrameworkKind maps a framework name to its kind, or KindCommand.
func FrameworkKind(name string) Kind {
	switch name {
	case "next":
		return KindNext
	case "vite":
		return KindVite
	case "nest":
		return KindNest
	}
	return KindCommand
}

// NullAdapter is used for projects without a dev-server concept.
type NullAdapter struct{}

func (NullAdapter) Name() string                       { return "none" }
func (NullAdapter) Kind() Kind                         { return KindNull }
func (NullAdapter) Start(ctx context.Context) error    { return nil }
func (NullAdapter) Stop(ctx context.Context) error     { return nil }
func (NullAdapter) Kill(ctx context.Context) error     { return nil }
func (NullAdapter) IsRunning(ctx context.Context) bool { return false }
