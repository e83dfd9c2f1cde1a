// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitflow

import (
	"context"
	"fmt"

	"github.com/wingedpig/parallel/internal/events"
)

// Rebase fetches origin and rebases branch onto origin/main. The rebase
// runs in the branch's worktree when it has one, otherwise in the main
// checkout after switching to branch. A conflict is left in place for
// the operator.
func (e *Engine) Rebase(ctx context.Context, branch string) error {
	dir := e.root()
	if e.worktrees != nil {
		if wt, ok, err := e.worktrees.FindByBranch(ctx, e.project, branch); err == nil && ok {
			dir = wt.Path
		}
	}

	e.logger.Info("fetching origin")
	if _, err := e.run(ctx, dir, "fetch", "origin"); err != nil {
		return e.failed(ctx, "rebase", branch, fmt.Errorf("fetch origin: %w", err))
	}

	current, err := e.run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return e.failed(ctx, "rebase", branch, err)
	}
	if current != branch {
		if _, err := e.run(ctx, dir, "checkout", branch); err != nil {
			return e.failed(ctx, "rebase", branch, fmt.Errorf("checkout %s: %w", branch, err))
		}
	}

	upstream := "origin/" + e.mainBranch()
	e.logger.Info("rebasing", "branch", branch, "onto", upstream)
	if _, err := e.run(ctx, dir, "rebase", upstream); err != nil {
		return e.failed(ctx, "rebase", branch, fmt.Errorf(
			"%w: rebase of %s onto %s stopped (%v). Resolve conflicts in %s and run: git rebase --continue (or git rebase --abort)",
			ErrConflict, branch, upstream, err, dir))
	}

	e.publish(ctx, events.GitRebased, map[string]interface{}{"branch": branch})
	return nil
}

// Merge brings main up to date with origin/main and then fast-forwards it
// to branch. A stale main or diverged history stops the merge; it is
// never forced.
func (e *Engine) Merge(ctx context.Context, branch string) error {
	root := e.root()
	main := e.mainBranch()

	if _, err := e.run(ctx, root, "checkout", main); err != nil {
		return e.failed(ctx, "merge", branch, fmt.Errorf("checkout %s: %w", main, err))
	}
	if _, err := e.run(ctx, root, "fetch", "origin"); err != nil {
		return e.failed(ctx, "merge", branch, fmt.Errorf("fetch origin: %w", err))
	}
	if _, err := e.run(ctx, root, "rebase", "origin/"+main); err != nil {
		return e.failed(ctx, "merge", branch, fmt.Errorf(
			"%w: could not update %s from origin/%s (%v). Run: git rebase --abort, then update %s by hand",
			ErrPrecondition, main, main, err, main))
	}

	e.logger.Info("fast-forwarding", "main", main, "to", branch)
	if _, err := e.run(ctx, root, "merge", "--ff-only", branch); err != nil {
		return e.failed(ctx, "merge", branch, fmt.Errorf(
			"%w: %s has diverged from %s. Rebase the branch first", ErrNotFastForward, branch, main))
	}

	e.publish(ctx, events.GitMerged, map[string]interface{}{"branch": branch})
	return nil
}

// DeleteResult reports which parts of a deletion happened.
type DeleteResult struct {
	WorktreeRemoved bool `json:"worktreeRemoved"`
	LocalDeleted    bool `json:"localDeleted"`
	RemoteDeleted   bool `json:"remoteDeleted"`
}

// Delete removes branch. A bound worktree must be removed first; declining
// aborts the whole deletion. Local and remote deletion are confirmed
// separately, and the remote step is skipped when origin has no such ref.
func (e *Engine) Delete(ctx context.Context, branch string) (DeleteResult, error) {
	var res DeleteResult
	root := e.root()

	if branch == e.mainBranch() {
		return res, fmt.Errorf("%w: refusing to delete %s", ErrPrecondition, branch)
	}

	if e.worktrees != nil {
		wt, ok, err := e.worktrees.FindByBranch(ctx, e.project, branch)
		if err != nil {
			return res, e.failed(ctx, "delete", branch, err)
		}
		if ok {
			if !e.confirm.Confirm(ctx, fmt.Sprintf("Remove worktree at %s?", wt.Path), true) {
				return res, fmt.Errorf("%w: worktree %s still uses %s", ErrPrecondition, wt.Path, branch)
			}
			if err := e.worktrees.Remove(ctx, e.project, wt.Path); err != nil {
				return res, e.failed(ctx, "delete", branch, fmt.Errorf("remove worktree: %w", err))
			}
			res.WorktreeRemoved = true
		}
	}

	if _, err := e.run(ctx, root, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch); err == nil {
		if e.confirm.Confirm(ctx, fmt.Sprintf("Delete local branch %s?", branch), true) {
			if _, err := e.run(ctx, root, "branch", "-D", branch); err != nil {
				return res, e.failed(ctx, "delete", branch, err)
			}
			res.LocalDeleted = true
		}
	}

	out, err := e.run(ctx, root, "ls-remote", "--heads", "origin", branch)
	if err == nil && out != "" {
		if e.confirm.Confirm(ctx, fmt.Sprintf("Delete remote branch origin/%s?", branch), false) {
			if _, err := e.run(ctx, root, "push", "origin", "--delete", branch); err != nil {
				return res, e.failed(ctx, "delete", branch, err)
			}
			res.RemoteDeleted = true
		}
	}

	e.publish(ctx, events.GitDeleted, map[string]interface{}{
		"branch":   branch,
		"worktree": res.WorktreeRemoved,
		"local":    res.LocalDeleted,
		"remote":   res.RemoteDeleted,
	})
	return res, nil
}
