// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"os"
	"regexp"

	"github.com/wingedpig/parallel/internal/procs"
)

type framework struct {
	start   string
	pattern *regexp.Regexp
}

// Built-in framework dev servers.
var frameworks = map[Kind]framework{
	KindNext: {start: "npx next dev", pattern: regexp.MustCompile(`next dev`)},
	KindVite: {start: "npx vite", pattern: regexp.MustCompile(`(^|[/ ])vite( |$)`)},
	KindNest: {start: "npx nest start --watch", pattern: regexp.MustCompile(`nest.* start`)},
}

// FrameworkAdapter runs a known framework's dev server: SIGTERM to stop,
// SIGKILL to kill, liveness by process-table match.
type FrameworkAdapter struct {
	kind Kind
	name string
	fw   framework
	env  Env
	proc *process
}

// NewFrameworkAdapter creates an adapter for kind (KindNext, KindVite or KindNest).
func NewFrameworkAdapter(kind Kind, name string, env Env) *FrameworkAdapter {
	if name == "" {
		name = kind.String()
	}
	return &FrameworkAdapter{
		kind: kind,
		name: name,
		fw:   frameworks[kind],
		env:  env,
		proc: newProcess(name, env.OnExit),
	}
}

func (a *FrameworkAdapter) Name() string { return a.name }
func (a *FrameworkAdapter) Kind() Kind   { return a.kind }

// Start force-stops anything matching the framework, then starts it.
func (a *FrameworkAdapter) Start(ctx context.Context) error {
	if err := a.Kill(ctx); err != nil {
		return err
	}
	out, err := a.env.Log.Writer()
	if err != nil {
		return err
	}
	return a.proc.start(a.fw.start, a.env.Dir, out)
}

func (a *FrameworkAdapter) Stop(ctx context.Context) error {
	if err := a.proc.signal(ctx, "SIGTERM", defaultStopTimeout); err != nil {
		return err
	}
	a.killStale(ctx, procs.Graceful)
	return nil
}

func (a *FrameworkAdapter) Kill(ctx context.Context) error {
	if err := a.proc.signal(ctx, "SIGKILL", killWait); err != nil {
		return err
	}
	a.killStale(ctx, procs.Force)
	return nil
}

// killStale signals matching processes left over from earlier runs.
func (a *FrameworkAdapter) killStale(ctx context.Context, s procs.Strength) {
	procs.KillAll(a.env.killer(), a.matches(ctx), s)
}

func (a *FrameworkAdapter) IsRunning(ctx context.Context) bool {
	if a.env.Inspector == nil {
		return a.proc.isRunning()
	}
	return len(a.matches(ctx)) > 0
}

// Active also counts the process this adapter started.
func (a *FrameworkAdapter) Active(ctx context.Context) bool {
	return a.proc.isRunning() || len(a.matches(ctx)) > 0
}

func (a *FrameworkAdapter) matches(ctx context.Context) []int {
	if a.env.Inspector == nil {
		return nil
	}
	return matchPIDs(ctx, a.env.Inspector, a.fw.pattern)
}

// matchPIDs returns pids whose command line matches re, excluding self.
func matchPIDs(ctx context.Context, in procs.Inspector, re *regexp.Regexp) []int {
	list, err := in.List(ctx)
	if err != nil {
		return nil
	}
	self := os.Getpid()
	var pids []int
	for _, p := range list {
		if p.PID != self && re.MatchString(p.Command) {
			pids = append(pids, p.PID)
		}
	}
	return pids
}
