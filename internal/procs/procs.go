// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package procs contains the process control primitives: process table
// inspection, signal delivery, detached spawning and bounded OS queries.
package procs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// DefaultQueryTimeout bounds every OS query (ps, lsof, tasklist, ...).
const DefaultQueryTimeout = 10 * time.Second

// ErrUnsupported is returned when the platform cannot answer a query.
var ErrUnsupported = errors.New("not supported on this platform")

// Process is one row of the process table. TTY is empty when the process
// has no controlling terminal the platform can report.
type Process struct {
	PID     int
	TTY     string
	Command string
}

// Inspector reads the OS process table. Every result is a point-in-time
// snapshot.
type Inspector interface {
	// List returns all processes visible to the current user.
	List(ctx context.Context) ([]Process, error)
	// Cwd returns the working directory of pid.
	Cwd(ctx context.Context, pid int) (string, error)
}

// Run executes an OS query bounded by timeout and returns its stdout.
// A non-zero exit is an error carrying the command's stderr.
func Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return string(out), fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return string(out), fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

// Alive reports whether pid is present in the process table.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := ps.FindProcess(pid)
	return err == nil && p != nil
}
