// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/procs"
)

type fakeLauncher struct {
	mu   sync.Mutex
	reqs []LaunchRequest
	pid  int
	err  error
}

func (f *fakeLauncher) Name() string { return "fake" }

func (f *fakeLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return 0, f.err
	}
	f.pid++
	return f.pid, nil
}

type fakeWorktrees struct {
	resolved []string
	removed  []string
	removeIn []string
	err      error
}

func (f *fakeWorktrees) Resolve(ctx context.Context, p config.ProjectConfig, branch string, create bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(config.WorktreeDirFor(p), branchDir(branch))
	f.resolved = append(f.resolved, branch)
	return path, nil
}

func (f *fakeWorktrees) Remove(ctx context.Context, p config.ProjectConfig, path string) error {
	f.removed = append(f.removed, path)
	f.removeIn = append(f.removeIn, p.Path)
	return nil
}

func branchDir(branch string) string {
	return strings.TrimPrefix(branch, "claude/")
}

type rig struct {
	reg      *Registry
	launcher *fakeLauncher
	wts      *fakeWorktrees
	bus      *events.MemoryBus
	signals  []int
	sigErr   error
	dead     map[int]bool
	killed   []int
	failKill map[int]bool
}

var shop = config.ProjectConfig{Name: "shop", Path: "/src/shop"}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		launcher: &fakeLauncher{pid: 100},
		wts:      &fakeWorktrees{},
		bus:      events.NewMemoryBus(0),
		dead:     make(map[int]bool),
		failKill: make(map[int]bool),
	}
	t.Cleanup(func() { r.bus.Close() })
	r.reg = NewRegistry(Options{
		Config:    &config.Config{MainBranch: "main", BranchPrefix: "claude/", Agent: claude},
		Worktrees: r.wts,
		Launcher:  r.launcher,
		Killer: procs.KillerFunc(func(pid int, s procs.Strength) error {
			if r.failKill[pid] {
				return errors.New("operation not permitted")
			}
			r.killed = append(r.killed, pid)
			return nil
		}),
		Signal: func(pid int, sig string) error {
			r.signals = append(r.signals, pid)
			return r.sigErr
		},
		Alive:   func(pid int) bool { return !r.dead[pid] },
		Bus:     r.bus,
		TempDir: t.TempDir(),
	})
	return r
}

func TestSpawn_MainRunsInProjectRoot(t *testing.T) {
	r := newRig(t)
	s, err := r.reg.Spawn(context.Background(), SpawnRequest{Project: shop})
	require.NoError(t, err)

	assert.Equal(t, "session-1", s.ID)
	assert.Equal(t, "Claude 1 (interactive)", s.Name)
	assert.Equal(t, "main", s.Branch)
	assert.Equal(t, "/src/shop", s.Dir)
	assert.Empty(t, s.WorktreePath)
	assert.Equal(t, 101, s.PID)
	assert.Equal(t, StatusRunning, s.Status)
	assert.Empty(t, r.wts.resolved)

	require.Len(t, r.launcher.reqs, 1)
	assert.Equal(t, "/src/shop", r.launcher.reqs[0].Dir)
	assert.Equal(t, "Claude 1", r.launcher.reqs[0].Title)

	hist := r.bus.History(events.Filter{Types: []string{events.SessionStarted}})
	require.Len(t, hist, 1)
	assert.Equal(t, "shop", hist[0].Project)
}

func TestSpawn_BranchGetsWorktreeAndTask(t *testing.T) {
	r := newRig(t)
	s, err := r.reg.Spawn(context.Background(), SpawnRequest{
		Project:  shop,
		Branch:   "claude/fix-login",
		Headless: true,
		Task:     "Fix the login 'remember me' box",
	})
	require.NoError(t, err)

	assert.Equal(t, "Claude 1 (headless)", s.Name)
	assert.Equal(t, "/src/shop-worktrees/fix-login", s.WorktreePath)
	assert.Equal(t, s.WorktreePath, s.Dir)
	assert.Equal(t, []string{"claude/fix-login"}, r.wts.resolved)

	cmd := r.launcher.reqs[0].Command
	assert.Contains(t, cmd, "--dangerously-skip-permissions")
	assert.Contains(t, cmd, "task.txt")
	assert.Equal(t, s.WorktreePath, r.launcher.reqs[0].Dir)

	taskDir := filepath.Dir(r.launcher.reqs[0].LogPath)
	data, err := os.ReadFile(filepath.Join(taskDir, "task.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Fix the login 'remember me' box", string(data))
}

func TestSpawn_IDsAreNeverReused(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	a, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop})
	require.NoError(t, err)

	r.wts.err = errors.New("worktree missing after creation")
	_, err = r.reg.Spawn(ctx, SpawnRequest{Project: shop, Branch: "claude/x"})
	require.Error(t, err)
	r.wts.err = nil

	require.True(t, r.reg.Remove(a.ID))
	c, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop})
	require.NoError(t, err)

	assert.Equal(t, "session-1", a.ID)
	assert.Equal(t, "session-3", c.ID)
	assert.Len(t, r.reg.List(), 1)
}

func TestSpawn_LaunchFailureRecordsNothing(t *testing.T) {
	r := newRig(t)
	r.launcher.err = errors.New("tmux: no server")
	_, err := r.reg.Spawn(context.Background(), SpawnRequest{Project: shop, Task: "x"})
	require.Error(t, err)
	assert.Empty(t, r.reg.List())
}

func TestList_OrderAndLiveness(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop})
		require.NoError(t, err)
	}
	r.dead[102] = true

	list := r.reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"session-1", "session-2", "session-3"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, StatusRunning, list[0].Status)
	assert.Equal(t, StatusStopped, list[1].Status)

	latest, ok := r.reg.Latest()
	require.True(t, ok)
	assert.Equal(t, "session-3", latest.ID)

	_, ok = r.reg.Get("session-9")
	assert.False(t, ok)
}

func TestTerminate_SignalsAndRemovesWorktree(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	s, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop, Branch: "claude/a"})
	require.NoError(t, err)

	var asked string
	res, err := r.reg.Terminate(ctx, s.ID, func(path string) bool {
		asked = path
		return true
	})
	require.NoError(t, err)

	assert.True(t, res.Signalled)
	assert.True(t, res.WorktreeRemoved)
	assert.Equal(t, StatusStopped, res.Session.Status)
	assert.Equal(t, []int{s.PID}, r.signals)
	assert.Equal(t, s.WorktreePath, asked)
	assert.Equal(t, []string{s.WorktreePath}, r.wts.removed)
	assert.Equal(t, []string{"/src/shop"}, r.wts.removeIn)

	_, ok := r.reg.Get(s.ID)
	assert.False(t, ok)
	assert.Len(t, r.bus.History(events.Filter{Types: []string{events.SessionTerminated}}), 1)
}

func TestTerminate_DeclineKeepsWorktree(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	s, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop, Branch: "claude/a"})
	require.NoError(t, err)

	res, err := r.reg.Terminate(ctx, s.ID, func(string) bool { return false })
	require.NoError(t, err)
	assert.False(t, res.WorktreeRemoved)
	assert.Empty(t, r.wts.removed)
}

func TestTerminate_FallsBackToKill(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	s, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop})
	require.NoError(t, err)

	r.sigErr = errors.New("no such process group")
	res, err := r.reg.Terminate(ctx, s.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.Signalled)
	assert.Equal(t, []int{s.PID}, r.killed)
}

func TestTerminate_FailureKeepsSession(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	s, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop})
	require.NoError(t, err)

	r.sigErr = errors.New("denied")
	r.failKill[s.PID] = true
	_, err = r.reg.Terminate(ctx, s.ID, nil)
	require.Error(t, err)

	_, ok := r.reg.Get(s.ID)
	assert.True(t, ok)
}

func TestTerminate_Unknown(t *testing.T) {
	r := newRig(t)
	_, err := r.reg.Terminate(context.Background(), "session-42", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKillPIDs_PartialFailure(t *testing.T) {
	cases := []struct {
		name string
		fail []int
	}{
		{"none", nil},
		{"first", []int{101}},
		{"middle", []int{102}},
		{"last", []int{103}},
		{"all", []int{101, 102, 103}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t)
			for _, pid := range tc.fail {
				r.failKill[pid] = true
			}
			pids := []int{101, 102, 103}
			report := r.reg.KillPIDs(context.Background(), pids, procs.Force)

			assert.Len(t, report.Failed, len(tc.fail))
			assert.Len(t, report.Killed, len(pids)-len(tc.fail))
			assert.ElementsMatch(t, pids, append(append([]int{}, report.Killed...), report.Failed...))
		})
	}
}

func TestKillPIDs_MarksManagedStopped(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	s, err := r.reg.Spawn(ctx, SpawnRequest{Project: shop})
	require.NoError(t, err)

	r.reg.KillPIDs(ctx, []int{s.PID}, procs.Graceful)
	got, ok := r.reg.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, StatusStopped, got.Status)
}

func TestSpawn_ResolvesPIDByDirectory(t *testing.T) {
	insp := &fakeInspector{
		lists: [][]procs.Process{
			{{PID: 50, TTY: "ttys001", Command: "claude"}},
			{{PID: 50, TTY: "ttys001", Command: "claude"}},
			{{PID: 50, TTY: "ttys001", Command: "claude"}, {PID: 77, TTY: "ttys002", Command: "claude"}},
		},
		cwd: map[int]string{50: "/src/other", 77: "/src/shop"},
	}
	reg := NewRegistry(Options{
		Config:          &config.Config{MainBranch: "main", Agent: claude},
		Launcher:        LauncherFunc(func(context.Context, LaunchRequest) (int, error) { return 0, nil }),
		Detector:        NewDetector(DetectorOptions{Inspector: insp, ProcessName: "claude", Self: 1}),
		Alive:           func(int) bool { return true },
		TempDir:         t.TempDir(),
		ResolveInterval: time.Millisecond,
	})
	s, err := reg.Spawn(context.Background(), SpawnRequest{Project: shop})
	require.NoError(t, err)
	assert.Equal(t, 77, s.PID)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	got := truncate("héllo wörld ünïcode", 7)
	assert.Equal(t, "héllo w...", got)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, utf8.ValidString(truncate("日本語のタスク", 2)))
	assert.Equal(t, "日本...", truncate("日本語のタスク", 2))
}
