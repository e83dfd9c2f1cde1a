// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/procs"
)

const (
	stopCommandTimeout = 30 * time.Second
	killWait           = 3 * time.Second
)

// CommandAdapter runs user-supplied shell strings. A stop or kill value
// carrying the signal marker signals the start command's process group
// instead of running a separate command.
type CommandAdapter struct {
	cfg   config.AppConfig
	env   Env
	proc  *process
	ready *regexp.Regexp
}

// NewCommandAdapter creates an adapter for one declared app.
func NewCommandAdapter(cfg config.AppConfig, env Env) *CommandAdapter {
	a := &CommandAdapter{
		cfg:  cfg,
		env:  env,
		proc: newProcess(cfg.Name, env.OnExit),
	}
	if cfg.ReadyPattern != "" {
		a.ready, _ = regexp.Compile(cfg.ReadyPattern)
	}
	return a
}

func (a *CommandAdapter) Name() string { return a.cfg.Name }
func (a *CommandAdapter) Kind() Kind   { return KindCommand }

// PID returns the start command's pid, or 0.
func (a *CommandAdapter) PID() int { return a.proc.PID() }

// Start kills any process this adapter still tracks, then starts afresh.
func (a *CommandAdapter) Start(ctx context.Context) error {
	if err := a.Kill(ctx); err != nil {
		return fmt.Errorf("%s: clear previous run: %w", a.cfg.Name, err)
	}
	out, err := a.env.Log.Writer()
	if err != nil {
		return err
	}
	return a.proc.start(a.cfg.Start, a.env.Dir, out)
}

func (a *CommandAdapter) Stop(ctx context.Context) error {
	return a.halt(ctx, a.cfg.Stop, "SIGTERM", defaultStopTimeout)
}

func (a *CommandAdapter) Kill(ctx context.Context) error {
	return a.halt(ctx, a.cfg.Kill, "SIGKILL", killWait)
}

func (a *CommandAdapter) halt(ctx context.Context, value, fallback string, wait time.Duration) error {
	if sig, ok := markerSignal(value); ok {
		return a.proc.signal(ctx, sig, wait)
	}
	if value == "" {
		return a.proc.signal(ctx, fallback, wait)
	}

	a.proc.markStopping()
	runCtx, cancel := context.WithTimeout(ctx, stopCommandTimeout)
	defer cancel()
	cmd := procs.ShellCommand(runCtx, value)
	cmd.Dir = a.env.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %q failed: %w: %s", a.cfg.Name, value, err, out)
	}
	if !a.proc.wait(wait) {
		return a.proc.signal(ctx, "SIGKILL", killWait)
	}
	return nil
}

// IsRunning is true while the start command is alive and, when a ready
// pattern is configured, once the log has matched it.
func (a *CommandAdapter) IsRunning(ctx context.Context) bool {
	if !a.proc.isRunning() {
		return false
	}
	if a.ready == nil {
		return true
	}
	return a.env.Log.Match(a.ready)
}

// Active is true while the start command is alive, ready or not.
func (a *CommandAdapter) Active(ctx context.Context) bool {
	return a.proc.isRunning()
}

func markerSignal(v string) (string, bool) {
	return config.AppConfig{Stop: v}.StopSignal()
}
