// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package procs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// NewInspector returns the ps/lsof inspector.
func NewInspector() Inspector {
	return &posixInspector{}
}

type posixInspector struct{}

func (i *posixInspector) List(ctx context.Context) ([]Process, error) {
	out, err := Run(ctx, DefaultQueryTimeout, "ps", "-eo", "pid,tty,command")
	if err != nil {
		return nil, err
	}
	return ParsePS(out), nil
}

func (i *posixInspector) Cwd(ctx context.Context, pid int) (string, error) {
	out, err := Run(ctx, DefaultQueryTimeout, "lsof", "-a", "-p", strconv.Itoa(pid), "-d", "cwd", "-Fn")
	if err != nil {
		return "", err
	}
	cwd := ParseLsofCwd(out)
	if cwd == "" {
		return "", fmt.Errorf("no cwd reported for pid %d", pid)
	}
	return cwd, nil
}

// Detach places cmd in its own process group so it outlives the
// orchestrator's terminal and can be signalled as a group.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Terminate sends SIGTERM (Graceful) or SIGKILL (Force) to pid.
func Terminate(pid int, s Strength) error {
	sig := syscall.SIGTERM
	if s == Force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}
	return nil
}

// SignalGroup sends the named signal to the process group led by pid.
func SignalGroup(pid int, name string) error {
	sig, err := ParseSignal(name)
	if err != nil {
		return err
	}
	if err := syscall.Kill(-pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return fmt.Errorf("signal group %d: %w", pid, err)
	}
	return nil
}

// ParseSignal maps a signal name to a signal.
func ParseSignal(name string) (syscall.Signal, error) {
	switch name {
	case "SIGTERM", "TERM":
		return syscall.SIGTERM, nil
	case "SIGKILL", "KILL":
		return syscall.SIGKILL, nil
	case "SIGINT", "INT":
		return syscall.SIGINT, nil
	case "SIGHUP", "HUP":
		return syscall.SIGHUP, nil
	case "SIGQUIT", "QUIT":
		return syscall.SIGQUIT, nil
	}
	return 0, fmt.Errorf("unknown signal: %s", name)
}

// ShellCommand builds a command running line through the user's shell.
func ShellCommand(ctx context.Context, line string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", line)
}
