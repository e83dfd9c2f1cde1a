// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/git"
	"github.com/wingedpig/parallel/internal/git/gittest"
)

const porcelain = `worktree /src/shop
HEAD 1111111111111111111111111111111111111111
branch refs/heads/main

worktree /src/shop-worktrees/fix-login
HEAD 2222222222222222222222222222222222222222
branch refs/heads/claude/fix-login

worktree /src/shop-worktrees/spike
HEAD 3333333333333333333333333333333333333333
detached
`

func newTestManager(r git.Runner) (*Manager, *events.MemoryBus) {
	bus := events.NewMemoryBus(0)
	return NewManager(r, Options{BranchPrefix: "claude/", Bus: bus}), bus
}

func TestDirName(t *testing.T) {
	cases := map[string]string{
		"claude/Fix Bug #2":   "Fix-Bug--2",
		"claude/fix-login":    "fix-login",
		"claude/a/b_c.d":      "a-b-c-d",
		"feature/no-prefix":   "feature-no-prefix",
		"claude/UPPER-lower9": "UPPER-lower9",
	}
	for branch, want := range cases {
		assert.Equal(t, want, DirName("claude/", branch), branch)
		assert.Equal(t, DirName("claude/", branch), DirName("claude/", branch))
	}
}

func TestParsePorcelain(t *testing.T) {
	list := ParsePorcelain(porcelain)
	require.Len(t, list, 3)
	assert.Equal(t, "main", list[0].Branch)
	assert.Equal(t, "claude/fix-login", list[1].Branch)
	assert.Equal(t, "fix-login", list[1].Name())
	assert.True(t, list[2].Detached)
	assert.Empty(t, ParsePorcelain(""))
}

func TestResolve_MainReturnsRoot(t *testing.T) {
	fake := gittest.New()
	m, _ := newTestManager(fake)

	path, err := m.Resolve(context.Background(), config.ProjectConfig{Name: "shop", Path: "/src/shop"}, "main", false)
	require.NoError(t, err)
	assert.Equal(t, "/src/shop", path)
	assert.Empty(t, fake.Calls())
}

func TestResolve_ExistingWorktree(t *testing.T) {
	fake := gittest.New().On("worktree list", porcelain, nil)
	m, _ := newTestManager(fake)
	project := config.ProjectConfig{Name: "shop", Path: "/src/shop", WorktreeDir: "/src/shop-worktrees"}

	path, err := m.Resolve(context.Background(), project, "claude/fix-login", false)
	require.NoError(t, err)
	assert.Equal(t, "/src/shop-worktrees/fix-login", path)
	assert.False(t, fake.Called("worktree add"))
}

func TestResolve_CreatesWorktree(t *testing.T) {
	base := t.TempDir()
	project := config.ProjectConfig{Name: "shop", Path: filepath.Join(base, "shop")}
	want := filepath.Join(base, "shop-worktrees", "New-Thing")

	fake := gittest.New().
		On("worktree list", "worktree "+project.Path+"\nbranch refs/heads/main\n", nil).
		OnDo("worktree add", gittest.Response{Do: func() { os.MkdirAll(want, 0755) }})
	m, bus := newTestManager(fake)

	path, err := m.Resolve(context.Background(), project, "claude/New Thing", true)
	require.NoError(t, err)
	assert.Equal(t, want, path)
	assert.True(t, fake.Called("worktree add "+want+" -b claude/New Thing"))

	evs := bus.History(events.Filter{Types: []string{events.WorktreeCreated}})
	require.Len(t, evs, 1)
	assert.Equal(t, "claude/New Thing", evs[0].Payload["branch"])
}

func TestResolve_DirectoryMissingAfterAdd(t *testing.T) {
	base := t.TempDir()
	project := config.ProjectConfig{Name: "shop", Path: filepath.Join(base, "shop")}
	fake := gittest.New().On("worktree list", "", nil)
	m, _ := newTestManager(fake)

	_, err := m.Resolve(context.Background(), project, "claude/ghost", false)
	assert.ErrorIs(t, err, ErrNotCreated)
}

func TestResolve_AddFails(t *testing.T) {
	base := t.TempDir()
	project := config.ProjectConfig{Name: "shop", Path: filepath.Join(base, "shop")}
	fake := gittest.New().
		On("worktree list", "", nil).
		Fail("worktree add", "fatal: invalid reference: claude/nope")
	m, _ := newTestManager(fake)

	_, err := m.Resolve(context.Background(), project, "claude/nope", false)
	require.Error(t, err)
	assert.Contains(t, git.Output(err), "invalid reference")
}

func TestFindByBranchAndRemove(t *testing.T) {
	fake := gittest.New().On("worktree list", porcelain, nil)
	m, bus := newTestManager(fake)
	project := config.ProjectConfig{Name: "shop", Path: "/src/shop"}
	ctx := context.Background()

	wt, ok, err := m.FindByBranch(ctx, project, "claude/fix-login")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/src/shop-worktrees/fix-login", wt.Path)

	_, ok, err = m.FindByBranch(ctx, project, "main")
	require.NoError(t, err)
	assert.False(t, ok, "main checkout is not a session worktree")

	require.NoError(t, m.Remove(ctx, project, wt.Path))
	assert.True(t, fake.Called("worktree remove --force /src/shop-worktrees/fix-login"))
	assert.Len(t, bus.History(events.Filter{Types: []string{events.WorktreeRemoved}}), 1)
}

func TestManager_RealGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}
	ctx := context.Background()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	root := filepath.Join(base, "repo")
	require.NoError(t, os.MkdirAll(root, 0755))

	g := git.NewExec()
	for _, args := range [][]string{
		{"init", "-q", "-b", "main"},
		{"-c", "user.email=t@example.com", "-c", "user.name=t", "commit", "-q", "--allow-empty", "-m", "init"},
	} {
		_, err := g.Run(ctx, root, args...)
		require.NoError(t, err)
	}

	m := NewManager(g, Options{})
	project := config.ProjectConfig{Name: "Repo", Path: root}
	path, err := m.Resolve(ctx, project, "claude/Try It", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "repo-worktrees", "Try-It"), path)
	assert.DirExists(t, path)

	again, err := m.Resolve(ctx, project, "claude/Try It", false)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	require.NoError(t, m.Remove(ctx, project, path))
	assert.NoDirExists(t, path)
}
