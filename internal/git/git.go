// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package git runs the git CLI. Everything above it treats git as a black
// box reached through Runner.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes git commands in a directory.
type Runner interface {
	// Run returns trimmed stdout. A non-zero exit returns *CommandError.
	Run(ctx context.Context, dir string, args ...string) (string, error)
	// RunAttached runs with the operator's terminal attached, for commands
	// that may open an editor or print progress.
	RunAttached(ctx context.Context, dir string, args ...string) error
}

// CommandError describes a failed git invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Output returns the combined output captured in err, if any.
func Output(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Output
	}
	return ""
}

// Exec runs the real git binary.
type Exec struct {
	// Binary defaults to "git".
	Binary string
}

// NewExec creates a runner for the git on PATH.
func NewExec() *Exec {
	return &Exec{Binary: "git"}
}

func (e *Exec) bin() string {
	if e.Binary == "" {
		return "git"
	}
	return e.Binary
}

func (e *Exec) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.bin(), args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(stderr.String())
		if out == "" {
			out = strings.TrimSpace(stdout.String())
		}
		return "", &CommandError{Args: args, Output: out, Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (e *Exec) RunAttached(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, e.bin(), args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Args: args, Err: err}
	}
	return nil
}

// TopLevel returns the repository root containing dir.
func TopLevel(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "rev-parse", "--show-toplevel")
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, r Runner, dir string) bool {
	out, err := r.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the checked-out branch, or "" when detached.
func CurrentBranch(ctx context.Context, r Runner, dir string) (string, error) {
	return r.Run(ctx, dir, "branch", "--show-current")
}

// Lines splits command output into non-empty trimmed lines.
func Lines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
