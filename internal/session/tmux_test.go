// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tmuxScript struct {
	calls      []string
	hasSession bool
}

func (s *tmuxScript) run(ctx context.Context, args ...string) (string, error) {
	s.calls = append(s.calls, strings.Join(args, " "))
	if args[0] == "has-session" {
		if s.hasSession {
			return "", nil
		}
		return "", errors.New("can't find session")
	}
	return "4242\n", nil
}

func TestTmuxLauncher(t *testing.T) {
	req := LaunchRequest{Title: "Claude 1", Dir: "/src/shop", Command: "claude"}

	t.Run("inside tmux", func(t *testing.T) {
		s := &tmuxScript{}
		l := &TmuxLauncher{Session: "parallel", Inside: func() bool { return true }, Run: s.run}
		pid, err := l.Launch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 4242, pid)
		assert.Equal(t, []string{"new-window -P -F #{pane_pid} -n Claude 1 -c /src/shop claude"}, s.calls)
	})

	t.Run("existing detached session", func(t *testing.T) {
		s := &tmuxScript{hasSession: true}
		l := &TmuxLauncher{Session: "parallel", Inside: func() bool { return false }, Run: s.run}
		_, err := l.Launch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "new-window -t parallel: -P -F #{pane_pid} -n Claude 1 -c /src/shop claude", s.calls[1])
	})

	t.Run("new detached session", func(t *testing.T) {
		s := &tmuxScript{}
		l := &TmuxLauncher{Session: "parallel", Inside: func() bool { return false }, Run: s.run}
		_, err := l.Launch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "new-session -d -s parallel -P -F #{pane_pid} -n Claude 1 -c /src/shop claude", s.calls[1])
	})
}

func TestWindowName(t *testing.T) {
	assert.Equal(t, "Claude 1 (v1-2)", windowName("Claude 1 (v1.2)"))
}

func TestFilterTMUXEnv(t *testing.T) {
	env := filterTMUXEnv([]string{"HOME=/root", "TMUX=/tmp/tmux-0/default,1,0", "TMUX_PANE=%1"})
	assert.Equal(t, []string{"HOME=/root"}, env)
}

func TestPTYLauncher_WritesLog(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	logPath := filepath.Join(dir, "session.log")

	pid, err := NewPTYLauncher().Launch(context.Background(), LaunchRequest{
		Dir:     dir,
		Command: "pwd; echo agent-ready",
		LogPath: logPath,
	})
	require.NoError(t, err)
	assert.Greater(t, pid, 0)

	assert.Eventually(t, func() bool {
		data, _ := os.ReadFile(logPath)
		return strings.Contains(string(data), "agent-ready")
	}, 5*time.Second, 20*time.Millisecond)
}
