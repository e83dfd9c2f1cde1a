// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/parallel/internal/procs"
)

func TestFrameworkAdapter_StartTwiceKeepsOneProcess(t *testing.T) {
	env, k := frameworkEnv(t)
	a := NewFrameworkAdapter(KindNext, "web", env)
	a.fw.start = "sleep 30"
	ctx := context.Background()
	t.Cleanup(func() {
		a.Kill(context.Background())
		env.Log.Close()
	})

	require.NoError(t, a.Start(ctx))
	first := a.proc.PID()
	require.NotZero(t, first)

	require.NoError(t, a.Start(ctx))
	second := a.proc.PID()
	require.NotZero(t, second)
	assert.NotEqual(t, first, second)

	assert.Eventually(t, func() bool { return !procs.Alive(first) }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, a.proc.isRunning())
	assert.True(t, Active(ctx, a))
	assert.Empty(t, k.pids)
}

func TestScriptAdapter_StartTwiceKeepsOneProcess(t *testing.T) {
	a, _ := scriptAdapter(t)
	require.NoError(t, os.WriteFile(a.startPath, []byte("exec sleep 30\n"), 0755))
	ctx := context.Background()
	t.Cleanup(func() {
		a.Kill(context.Background())
		a.env.Log.Close()
	})

	require.NoError(t, a.Start(ctx))
	first := a.proc.PID()
	require.NotZero(t, first)

	require.NoError(t, a.Start(ctx))
	second := a.proc.PID()
	require.NotZero(t, second)
	assert.NotEqual(t, first, second)

	assert.Eventually(t, func() bool { return !procs.Alive(first) }, 3*time.Second, 20*time.Millisecond)
	// listeners are not up, so the app is alive but not ready
	assert.True(t, Active(ctx, a))
	assert.False(t, a.IsRunning(ctx))
}

func TestScriptAdapter_StopRunsKillScript(t *testing.T) {
	a, _ := scriptAdapter(t)
	marker := filepath.Join(a.env.Dir, "killed")
	require.NoError(t, os.WriteFile(a.startPath, []byte("echo $$ > dev.pid\nexec sleep 30\n"), 0755))
	require.NoError(t, os.WriteFile(a.killPath, []byte("touch killed\nkill $(cat dev.pid)\n"), 0755))
	ctx := context.Background()
	t.Cleanup(func() {
		a.Kill(context.Background())
		a.env.Log.Close()
	})

	require.NoError(t, a.Start(ctx))
	pidFile := filepath.Join(a.env.Dir, "dev.pid")
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(pidFile)
		return err == nil && len(b) > 0
	}, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, a.Stop(ctx))

	assert.FileExists(t, marker)
	assert.False(t, a.proc.isRunning())
}
