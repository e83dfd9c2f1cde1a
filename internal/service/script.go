// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/wingedpig/parallel/internal/procs"
)

// Legacy two-process convention.
var (
	backendPattern  = regexp.MustCompile(`nest.* start`)
	frontendPattern = regexp.MustCompile(`next dev`)
)

const (
	backendPort  = 4001
	frontendPort = 3000
)

// Liveness reports the two legacy listeners separately.
type Liveness struct {
	Backend  bool `json:"backend"`
	Frontend bool `json:"frontend"`
}

// ScriptAdapter drives repositories that predate app configuration: a
// start script launching a backend and a frontend, and a kill script.
type ScriptAdapter struct {
	env        Env
	startPath  string
	killPath   string
	proc       *process
	usePorts   bool
	listenPort func(ctx context.Context) map[int]int
}

// NewScriptAdapter creates the legacy adapter for the scripts in env.Dir.
func NewScriptAdapter(env Env, start, kill string) *ScriptAdapter {
	return &ScriptAdapter{
		env:        env,
		startPath:  filepath.Join(env.Dir, start),
		killPath:   filepath.Join(env.Dir, kill),
		proc:       newProcess("dev", env.OnExit),
		usePorts:   runtime.GOOS == "windows",
		listenPort: netstatPorts,
	}
}

func (a *ScriptAdapter) Name() string { return "dev" }
func (a *ScriptAdapter) Kind() Kind   { return KindScript }

func scriptLine(path string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`powershell -NoProfile -ExecutionPolicy Bypass -File "%s"`, path)
	}
	return fmt.Sprintf(`bash "%s"`, path)
}

// Start runs the kill script first so stale listeners free their ports.
func (a *ScriptAdapter) Start(ctx context.Context) error {
	if err := a.Kill(ctx); err != nil {
		return err
	}
	out, err := a.env.Log.Writer()
	if err != nil {
		return err
	}
	return a.proc.start(scriptLine(a.startPath), a.env.Dir, out)
}

// Stop runs the kill script.
func (a *ScriptAdapter) Stop(ctx context.Context) error {
	a.proc.markStopping()
	runCtx, cancel := context.WithTimeout(ctx, stopCommandTimeout)
	defer cancel()

	cmd := procs.ShellCommand(runCtx, scriptLine(a.killPath))
	cmd.Dir = a.env.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("kill script: %w: %s", err, out)
	}
	if !a.proc.wait(defaultStopTimeout) {
		return a.proc.signal(ctx, "SIGKILL", killWait)
	}
	return nil
}

// Kill stops the script's process group and force-kills both listeners.
func (a *ScriptAdapter) Kill(ctx context.Context) error {
	if err := a.proc.signal(ctx, "SIGKILL", killWait); err != nil {
		return err
	}
	if a.env.Inspector != nil {
		pids := append(matchPIDs(ctx, a.env.Inspector, backendPattern), matchPIDs(ctx, a.env.Inspector, frontendPattern)...)
		procs.KillAll(a.env.killer(), pids, procs.Force)
	}
	return nil
}

// IsRunning is true only when both listeners are up.
func (a *ScriptAdapter) IsRunning(ctx context.Context) bool {
	l := a.Liveness(ctx)
	return l.Backend && l.Frontend
}

// Active is true when the start script or either listener is alive.
func (a *ScriptAdapter) Active(ctx context.Context) bool {
	if a.proc.isRunning() {
		return true
	}
	l := a.Liveness(ctx)
	return l.Backend || l.Frontend
}

// Liveness checks each listener. Windows has no useful command lines for
// node children, so listening ports are used there instead.
func (a *ScriptAdapter) Liveness(ctx context.Context) Liveness {
	if a.usePorts {
		ports := a.listenPort(ctx)
		_, b := ports[backendPort]
		_, f := ports[frontendPort]
		return Liveness{Backend: b, Frontend: f}
	}
	if a.env.Inspector == nil {
		return Liveness{}
	}
	return Liveness{
		Backend:  len(matchPIDs(ctx, a.env.Inspector, backendPattern)) > 0,
		Frontend: len(matchPIDs(ctx, a.env.Inspector, frontendPattern)) > 0,
	}
}

func netstatPorts(ctx context.Context) map[int]int {
	out, err := procs.Run(ctx, procs.DefaultQueryTimeout, "netstat", "-ano", "-p", "TCP")
	if err != nil {
		return nil
	}
	return procs.ParseNetstatListening(out)
}
