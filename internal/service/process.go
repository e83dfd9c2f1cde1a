// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/wingedpig/parallel/internal/procs"
)

const defaultStopTimeout = 10 * time.Second

// process is a detached shell command writing into the app log. The
// orchestrator holds only its pid and the exit notification.
type process struct {
	mu            sync.Mutex
	name          string
	cmd           *exec.Cmd
	pid           int
	running       bool
	stopRequested bool
	exitCode      int
	waitDone      chan struct{}
	onExit        ExitFunc
}

func newProcess(name string, onExit ExitFunc) *process {
	return &process{name: name, onExit: onExit}
}

// start launches line in its own process group. The command is not tied
// to ctx: it must outlive the operation that started it.
func (p *process) start(line, dir string, out *os.File) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("%s: already running", p.name)
	}
	if line == "" {
		return fmt.Errorf("%s: empty command", p.name)
	}

	cmd := procs.ShellCommand(context.Background(), line)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
		fmt.Fprintf(out, "%s starting %s: %s\n", markerPrefix, p.name, line)
	}
	procs.Detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.name, err)
	}

	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.running = true
	p.stopRequested = false
	p.exitCode = 0
	p.waitDone = make(chan struct{})

	go p.waitForExit(cmd, p.waitDone)
	return nil
}

// signal sends sig to the process group and waits up to timeout for the
// exit, escalating to SIGKILL.
func (p *process) signal(ctx context.Context, sig string, timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.stopRequested = true
	pid := p.pid
	waitDone := p.waitDone
	p.mu.Unlock()

	if err := procs.SignalGroup(pid, sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	select {
	case <-waitDone:
	case <-time.After(timeout):
		procs.SignalGroup(pid, "SIGKILL")
		<-waitDone
	case <-ctx.Done():
		procs.SignalGroup(pid, "SIGKILL")
		<-waitDone
	}
	return nil
}

// markStopping suppresses the exit callback for a stop performed by an
// external command.
func (p *process) markStopping() {
	p.mu.Lock()
	p.stopRequested = true
	p.mu.Unlock()
}

// wait blocks until the process exits or timeout elapses.
func (p *process) wait(timeout time.Duration) bool {
	p.mu.Lock()
	running, waitDone := p.running, p.waitDone
	p.mu.Unlock()
	if !running {
		return true
	}
	select {
	case <-waitDone:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *process) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *process) waitForExit(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	p.mu.Lock()
	p.running = false
	p.exitCode = code
	p.cmd = nil
	p.pid = 0
	requested := p.stopRequested
	p.stopRequested = false
	onExit := p.onExit
	p.mu.Unlock()

	close(done)

	if onExit != nil && !requested {
		onExit(p.name, code)
	}
}
