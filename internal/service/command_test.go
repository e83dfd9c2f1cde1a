// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/procs"
)

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
	done  chan struct{}
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{done: make(chan struct{}, 8)}
}

func (r *exitRecorder) record(name string, code int) {
	r.mu.Lock()
	r.codes = append(r.codes, code)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func newCommandAdapter(t *testing.T, app config.AppConfig, onExit ExitFunc) *CommandAdapter {
	t.Helper()
	dir := t.TempDir()
	a := NewCommandAdapter(app, Env{Dir: dir, Log: NewAppLog(dir), OnExit: onExit})
	t.Cleanup(func() {
		a.Kill(context.Background())
		a.env.Log.Close()
	})
	return a
}

func TestCommandAdapter_StartTwiceKillsFirst(t *testing.T) {
	a := newCommandAdapter(t, config.AppConfig{Name: "sleeper", Start: "sleep 30"}, nil)
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	first := a.PID()
	require.NotZero(t, first)

	require.NoError(t, a.Start(ctx))
	second := a.PID()
	require.NotZero(t, second)
	assert.NotEqual(t, first, second)

	assert.Eventually(t, func() bool { return !procs.Alive(first) }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, a.IsRunning(ctx))
}

func TestCommandAdapter_SignalMarkerStop(t *testing.T) {
	rec := newExitRecorder()
	a := newCommandAdapter(t, config.AppConfig{Name: "sleeper", Start: "sleep 30", Stop: "signal:SIGINT"}, rec.record)
	ctx := context.Background()

	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Stop(ctx))
	assert.False(t, a.IsRunning(ctx))

	// A requested stop never reports an unexpected exit
	select {
	case <-rec.done:
		t.Fatal("exit callback fired for a requested stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCommandAdapter_StopCommand(t *testing.T) {
	a := newCommandAdapter(t, config.AppConfig{Name: "sleeper", Start: "sleep 30"}, nil)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))

	pid := a.PID()
	a.cfg.Stop = "kill -TERM -" + strconv.Itoa(pid)
	require.NoError(t, a.Stop(ctx))
	assert.False(t, a.IsRunning(ctx))
}

func TestCommandAdapter_UnexpectedExitReported(t *testing.T) {
	rec := newExitRecorder()
	a := newCommandAdapter(t, config.AppConfig{Name: "crasher", Start: "exit 3"}, rec.record)

	require.NoError(t, a.Start(context.Background()))

	select {
	case <-rec.done:
	case <-time.After(3 * time.Second):
		t.Fatal("exit not reported")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []int{3}, rec.codes)
}

func TestCommandAdapter_ReadyPattern(t *testing.T) {
	a := newCommandAdapter(t, config.AppConfig{
		Name:         "web",
		Start:        "sleep 0.2; echo 'server ready on :3000'; sleep 30",
		ReadyPattern: `ready on :\d+`,
	}, nil)
	ctx := context.Background()

	_, err := a.env.Log.Truncate()
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	assert.False(t, a.IsRunning(ctx))
	assert.Eventually(t, func() bool { return a.IsRunning(ctx) }, 3*time.Second, 20*time.Millisecond)

	lines, err := a.env.Log.Tail(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"server ready on :3000"}, lines)
}
