// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitflow

import (
	"context"
	"fmt"

	"github.com/wingedpig/parallel/internal/events"
)

// Selection picks which session commits to promote.
type Selection int

const (
	SelectAll Selection = iota
	SelectLatest
)

func (s Selection) String() string {
	if s == SelectLatest {
		return "latest"
	}
	return "all"
}

// PickRange returns the cherry-pick argument for commits (newest first).
// Latest is the newest commit alone; all is the closed range from the
// oldest to the newest.
func PickRange(commits []Commit, sel Selection) string {
	if len(commits) == 0 {
		return ""
	}
	newest := commits[0].Hash
	if sel == SelectLatest || len(commits) == 1 {
		return newest
	}
	oldest := commits[len(commits)-1].Hash
	return oldest + "^.." + newest
}

// CherryPickResult describes a promotion attempt.
type CherryPickResult struct {
	Branch   string   `json:"branch"`
	Range    string   `json:"range"`
	Commits  []Commit `json:"commits"`
	Conflict bool     `json:"conflict"`
	Aborted  bool     `json:"aborted"`
}

// CherryPick promotes commits from a session branch onto main for local
// testing. Overlapping hunks take the session branch's side (-X theirs);
// this policy is only for promotion, never for landing a branch. On
// conflict the operator chooses between aborting and resolving by hand.
func (e *Engine) CherryPick(ctx context.Context, branch string, sel Selection) (CherryPickResult, error) {
	res := CherryPickResult{Branch: branch}
	root := e.root()

	current, err := e.CurrentBranch(ctx)
	if err != nil {
		return res, e.failed(ctx, "cherry-pick", branch, err)
	}
	if current != e.mainBranch() {
		return res, fmt.Errorf("%w: main checkout is on %q, switch to %s first", ErrPrecondition, current, e.mainBranch())
	}

	commits, err := e.CommitsAhead(ctx, branch)
	if err != nil {
		return res, e.failed(ctx, "cherry-pick", branch, err)
	}
	if len(commits) == 0 {
		return res, ErrNothingToPick
	}
	if sel == SelectLatest {
		res.Commits = commits[:1]
	} else {
		res.Commits = commits
	}
	res.Range = PickRange(commits, sel)

	e.logger.Info("cherry-picking", "branch", branch, "range", res.Range, "commits", len(res.Commits))
	if _, err := e.run(ctx, root, "cherry-pick", "-X", "theirs", res.Range); err != nil {
		res.Conflict = true
		if e.confirm.Confirm(ctx, "Cherry-pick hit a conflict. Abort and clean up?", true) {
			if _, abortErr := e.run(ctx, root, "cherry-pick", "--abort"); abortErr != nil {
				e.logger.Warn("cherry-pick --abort failed", "err", abortErr)
			} else {
				res.Aborted = true
			}
			return res, e.failed(ctx, "cherry-pick", branch, fmt.Errorf("%w: cherry-pick aborted", ErrConflict))
		}
		return res, e.failed(ctx, "cherry-pick", branch, fmt.Errorf(
			"%w: resolve conflicts in %s, then run: git cherry-pick --continue", ErrConflict, root))
	}

	e.logger.Info(fmt.Sprintf("promoted %d commit(s); to undo run: git reset --hard HEAD~%d", len(res.Commits), len(res.Commits)))
	e.publish(ctx, events.GitCherryPicked, map[string]interface{}{"branch": branch, "range": res.Range})
	return res, nil
}

// CherryPickInProgress reports whether the main checkout is stopped in
// the middle of a cherry-pick.
func (e *Engine) CherryPickInProgress(ctx context.Context) bool {
	_, err := e.run(ctx, e.root(), "rev-parse", "-q", "--verify", "CHERRY_PICK_HEAD")
	return err == nil
}

// AbortCherryPick abandons a cherry-pick that was left for manual
// resolution, restoring main to where it was before the promotion.
func (e *Engine) AbortCherryPick(ctx context.Context) error {
	if !e.CherryPickInProgress(ctx) {
		return fmt.Errorf("%w: no cherry-pick in progress", ErrPrecondition)
	}
	if _, err := e.run(ctx, e.root(), "cherry-pick", "--abort"); err != nil {
		return e.failed(ctx, "cherry-pick abort", "", err)
	}
	e.logger.Info("cherry-pick aborted")
	return nil
}
