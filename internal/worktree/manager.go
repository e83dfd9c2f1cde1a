// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/git"
	"github.com/wingedpig/parallel/internal/logging"
)

// ErrNotCreated is returned when `git worktree add` did not produce the
// expected directory.
var ErrNotCreated = errors.New("worktree directory was not created")

// Manager creates, finds and removes per-branch worktrees.
type Manager struct {
	git        git.Runner
	bus        events.Bus
	logger     *log.Logger
	prefix     string
	mainBranch string
}

// Options configures a Manager.
type Options struct {
	BranchPrefix string
	MainBranch   string
	Bus          events.Bus
	Logger       *log.Logger
}

// NewManager creates a worktree manager.
func NewManager(r git.Runner, opts Options) *Manager {
	m := &Manager{
		git:        r,
		bus:        opts.Bus,
		logger:     opts.Logger,
		prefix:     opts.BranchPrefix,
		mainBranch: opts.MainBranch,
	}
	if m.prefix == "" {
		m.prefix = config.DefaultBranchPrefix
	}
	if m.mainBranch == "" {
		m.mainBranch = "main"
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	return m
}

// PathFor returns where the worktree for branch lives (or would live).
func (m *Manager) PathFor(project config.ProjectConfig, branch string) string {
	return filepath.Join(config.WorktreeDirFor(project), DirName(m.prefix, branch))
}

// List returns the project's worktrees, main checkout included.
func (m *Manager) List(ctx context.Context, project config.ProjectConfig) ([]Info, error) {
	out, err := m.git.Run(ctx, project.Path, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParsePorcelain(out), nil
}

// FindByBranch returns the worktree that has branch checked out, skipping
// the main checkout.
func (m *Manager) FindByBranch(ctx context.Context, project config.ProjectConfig, branch string) (Info, bool, error) {
	list, err := m.List(ctx, project)
	if err != nil {
		return Info{}, false, err
	}
	root := filepath.Clean(project.Path)
	for _, wt := range list {
		if wt.Branch == branch && filepath.Clean(wt.Path) != root {
			return wt, true, nil
		}
	}
	return Info{}, false, nil
}

// Resolve returns the working directory for a session on branch. The main
// branch runs in the project root. Any other branch gets a worktree,
// created on first use; create also creates the branch itself.
func (m *Manager) Resolve(ctx context.Context, project config.ProjectConfig, branch string, create bool) (string, error) {
	if branch == m.mainBranch {
		return project.Path, nil
	}

	path := m.PathFor(project, branch)
	list, err := m.List(ctx, project)
	if err != nil {
		return "", fmt.Errorf("list worktrees: %w", err)
	}
	for _, wt := range list {
		if filepath.Clean(wt.Path) == filepath.Clean(path) {
			m.logger.Debug("using existing worktree", "path", path)
			return path, nil
		}
		if wt.Branch == branch && filepath.Clean(wt.Path) != filepath.Clean(project.Path) {
			m.logger.Debug("branch already has a worktree", "branch", branch, "path", wt.Path)
			return wt.Path, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create worktree dir: %w", err)
	}

	args := []string{"worktree", "add", path}
	if create {
		args = append(args, "-b")
	}
	args = append(args, branch)

	m.logger.Info("creating worktree", "branch", branch, "path", path)
	if _, err := m.git.Run(ctx, project.Path, args...); err != nil {
		m.logger.Error("git worktree add failed", "branch", branch, "err", err)
		return "", err
	}

	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		m.logger.Error("worktree missing after creation", "path", path)
		return "", fmt.Errorf("%w: %s", ErrNotCreated, path)
	}

	m.publish(ctx, events.WorktreeCreated, project, branch, path)
	return path, nil
}

// Remove deletes the worktree at path, discarding local changes.
func (m *Manager) Remove(ctx context.Context, project config.ProjectConfig, path string) error {
	if _, err := m.git.Run(ctx, project.Path, "worktree", "remove", "--force", path); err != nil {
		return err
	}
	m.logger.Info("removed worktree", "path", path)
	m.publish(ctx, events.WorktreeRemoved, project, "", path)
	return nil
}

func (m *Manager) publish(ctx context.Context, typ string, project config.ProjectConfig, branch, path string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, events.Event{
		Type:    typ,
		Project: project.Name,
		Payload: map[string]interface{}{"branch": branch, "path": path},
	})
}
