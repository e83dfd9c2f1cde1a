// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitflow

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/git"
)

const stashMessage = "parallel: auto-stash before pull"

// PullResult describes a pull-with-stash run.
type PullResult struct {
	Branch        string   `json:"branch"`
	Stashed       bool     `json:"stashed"`
	StashRestored bool     `json:"stashRestored"`
	Changed       []string `json:"changed,omitempty"`
	Reinstalled   bool     `json:"reinstalled"`
	Migrated      bool     `json:"migrated"`
	AppRestarted  bool     `json:"appRestarted"`
	AppWasRunning bool     `json:"appWasRunning"`
	UpToDate      bool     `json:"upToDate"`
}

// Pull syncs the main checkout's current branch with origin. Local changes
// are stashed first and restored afterwards, including when the pull
// fails. New dependency manifests trigger a reinstall, new migrations run
// the migrate command, and an app that stopped during the pull is offered
// a restart.
func (e *Engine) Pull(ctx context.Context) (PullResult, error) {
	root := e.root()
	var res PullResult

	branch, err := e.CurrentBranch(ctx)
	if err != nil || branch == "" {
		return res, e.failed(ctx, "pull", branch, fmt.Errorf("%w: no branch checked out", ErrPrecondition))
	}
	res.Branch = branch

	if e.app != nil {
		res.AppWasRunning = e.app.IsRunning(ctx)
	}

	dirty, err := e.HasLocalChanges(ctx, root)
	if err != nil {
		return res, e.failed(ctx, "pull", branch, err)
	}
	if dirty {
		e.logger.Info("stashing local changes")
		if _, err := e.run(ctx, root, "stash", "push", "--include-untracked", "-m", stashMessage); err != nil {
			return res, e.failed(ctx, "pull", branch, fmt.Errorf("stash: %w", err))
		}
		res.Stashed = true
	}

	before, _ := e.run(ctx, root, "rev-parse", "HEAD")

	pullErr := e.fetchAndPull(ctx, branch)
	if pullErr != nil {
		// Leave the tree as it was before the pull.
		if e.rebaseInProgress(ctx) {
			e.run(ctx, root, "rebase", "--abort")
		}
		if res.Stashed {
			res.StashRestored = e.popStash(ctx)
		}
		return res, e.failed(ctx, "pull", branch, pullErr)
	}

	if res.Stashed {
		res.StashRestored = e.popStash(ctx)
	}

	after, _ := e.run(ctx, root, "rev-parse", "HEAD")
	res.UpToDate = before == after
	if !res.UpToDate && before != "" {
		diff, err := e.run(ctx, root, "diff", "--name-only", before, after)
		if err == nil {
			res.Changed = git.Lines(diff)
		}
	}

	if e.touchesManifests(res.Changed) && e.cfg.Install != "" {
		e.logger.Info("dependencies changed, reinstalling", "cmd", e.cfg.Install)
		if err := e.shell(ctx, root, e.cfg.Install); err != nil {
			e.logger.Warn("install failed", "err", err)
		} else {
			res.Reinstalled = true
		}
	}
	if e.touchesMigrations(res.Changed) && e.cfg.Migrate != "" {
		e.logger.Info("new migrations, running", "cmd", e.cfg.Migrate)
		if err := e.shell(ctx, root, e.cfg.Migrate); err != nil {
			e.logger.Warn("migrations failed", "err", err)
		} else {
			res.Migrated = true
		}
	}

	if res.AppWasRunning && e.app != nil && !e.app.IsRunning(ctx) {
		if e.confirm.Confirm(ctx, "The app stopped during the pull. Restart it?", true) {
			if err := e.app.Start(ctx); err != nil {
				e.logger.Warn("app restart failed", "err", err)
			} else {
				res.AppRestarted = true
			}
		}
	}

	e.publish(ctx, events.GitPulled, map[string]interface{}{
		"branch":  branch,
		"changed": len(res.Changed),
	})
	return res, nil
}

func (e *Engine) fetchAndPull(ctx context.Context, branch string) error {
	if _, err := e.run(ctx, e.root(), "fetch", "origin"); err != nil {
		return fmt.Errorf("fetch origin: %w", err)
	}
	if _, err := e.run(ctx, e.root(), "pull", "--rebase", "origin", branch); err != nil {
		return fmt.Errorf("pull --rebase origin %s: %w", branch, err)
	}
	return nil
}

func (e *Engine) rebaseInProgress(ctx context.Context) bool {
	_, err := e.run(ctx, e.root(), "rev-parse", "--verify", "--quiet", "REBASE_HEAD")
	return err == nil
}

// popStash restores the auto-stash. On conflict the stash is kept so no
// work is lost.
func (e *Engine) popStash(ctx context.Context) bool {
	if _, err := e.run(ctx, e.root(), "stash", "pop"); err != nil {
		e.logger.Warn("could not restore stash; it is kept. Run: git stash pop", "err", err)
		return false
	}
	return true
}

func (e *Engine) touchesManifests(changed []string) bool {
	for _, f := range changed {
		for _, m := range e.cfg.DependencyManifests {
			if path.Base(f) == m {
				return true
			}
		}
	}
	return false
}

func (e *Engine) touchesMigrations(changed []string) bool {
	dir := strings.Trim(e.cfg.MigrationsDir, "/")
	if dir == "" {
		return false
	}
	for _, f := range changed {
		if strings.HasPrefix(f, dir+"/") || strings.Contains(f, "/"+dir+"/") {
			return true
		}
	}
	return false
}
