// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultTmuxSession hosts agent windows when this process is not itself
// running inside tmux.
const DefaultTmuxSession = "parallel"

// TmuxLauncher opens each agent in a tmux window: a new window in the
// current session when inside tmux, otherwise a window in a detached
// "parallel" session created on demand.
type TmuxLauncher struct {
	Session string
	// Inside overrides $TMUX detection.
	Inside func() bool
	// Run executes tmux and returns stdout.
	Run func(ctx context.Context, args ...string) (string, error)
}

// NewTmuxLauncher creates a launcher that runs the real tmux binary.
func NewTmuxLauncher() *TmuxLauncher {
	return &TmuxLauncher{
		Session: DefaultTmuxSession,
		Inside:  func() bool { return os.Getenv("TMUX") != "" },
		Run:     runTmux,
	}
}

func (t *TmuxLauncher) Name() string { return "tmux" }

func (t *TmuxLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	format := []string{"-P", "-F", "#{pane_pid}"}
	var args []string
	switch {
	case t.Inside != nil && t.Inside():
		args = append([]string{"new-window"}, format...)
	case t.hasSession(ctx):
		args = append([]string{"new-window", "-t", t.Session + ":"}, format...)
	default:
		args = append([]string{"new-session", "-d", "-s", t.Session}, format...)
	}
	args = append(args, "-n", windowName(req.Title), "-c", req.Dir, req.Command)

	out, err := t.Run(ctx, args...)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, nil
	}
	return pid, nil
}

func (t *TmuxLauncher) hasSession(ctx context.Context) bool {
	_, err := t.Run(ctx, "has-session", "-t", t.Session)
	return err == nil
}

// windowName keeps tmux target syntax out of window names.
func windowName(title string) string {
	return strings.NewReplacer(".", "-", ":", "-").Replace(title)
}

func runTmux(ctx context.Context, args ...string) (string, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, "tmux", args...)
	// A nested client would attach to the wrong server.
	cmd.Env = filterTMUXEnv(os.Environ())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tmux %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

func filterTMUXEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		if strings.HasPrefix(e, "TMUX=") || strings.HasPrefix(e, "TMUX_PANE=") {
			continue
		}
		out = append(out, e)
	}
	return out
}
