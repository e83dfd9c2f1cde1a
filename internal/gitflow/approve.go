// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/wingedpig/parallel/internal/events"
)

// ApproveState is a state of the approve workflow.
type ApproveState int

const (
	ApproveConfirm ApproveState = iota
	ApproveRebase
	ApproveMerge
	ApproveDelete
	ApprovePush
	ApproveDone
	ApproveFailed
	ApproveCancelled
)

func (s ApproveState) String() string {
	switch s {
	case ApproveConfirm:
		return "confirm"
	case ApproveRebase:
		return "rebase"
	case ApproveMerge:
		return "merge"
	case ApproveDelete:
		return "delete"
	case ApprovePush:
		return "push"
	case ApproveDone:
		return "done"
	case ApproveFailed:
		return "failed"
	case ApproveCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s ApproveState) terminal() bool {
	return s == ApproveDone || s == ApproveFailed || s == ApproveCancelled
}

// ApproveResult records how far approve got.
type ApproveResult struct {
	Branch    string         `json:"branch"`
	Completed []ApproveState `json:"-"`
	Final     ApproveState   `json:"-"`
	FailedAt  ApproveState   `json:"-"`
	Deleted   DeleteResult   `json:"deleted"`
	Pushed    bool           `json:"pushed"`
	Err       error          `json:"-"`
	// DeleteErr is why cleanup was incomplete. Approve still goes on to
	// the push, since main already holds the work.
	DeleteErr error `json:"-"`
}

// Approve lands branch: rebase, then merge, then delete, then an optional
// push of main. Rebase and merge must succeed for anything later to run;
// an incomplete delete is recorded and does not block the push.
func (e *Engine) Approve(ctx context.Context, branch string) ApproveResult {
	res := ApproveResult{Branch: branch, Final: ApproveConfirm}
	for !res.Final.terminal() {
		res.Final = e.approveNext(ctx, res.Final, &res)
	}
	if res.Final == ApproveDone {
		e.publish(ctx, events.GitApproved, map[string]interface{}{"branch": branch, "pushed": res.Pushed})
	}
	return res
}

// approveNext is the single transition function of the approve workflow.
// A failing step moves to ApproveFailed, so no later step can run.
func (e *Engine) approveNext(ctx context.Context, st ApproveState, res *ApproveResult) ApproveState {
	fail := func(err error) ApproveState {
		res.FailedAt = st
		res.Err = err
		return ApproveFailed
	}
	done := func(next ApproveState) ApproveState {
		res.Completed = append(res.Completed, st)
		return next
	}

	switch st {
	case ApproveConfirm:
		q := fmt.Sprintf("Approve %s? This rebases, fast-forwards %s and deletes the branch.", res.Branch, e.mainBranch())
		if !e.confirm.Confirm(ctx, q, false) {
			res.Err = ErrCancelled
			return ApproveCancelled
		}
		return done(ApproveRebase)

	case ApproveRebase:
		if err := e.Rebase(ctx, res.Branch); err != nil {
			return fail(err)
		}
		return done(ApproveMerge)

	case ApproveMerge:
		if err := e.Merge(ctx, res.Branch); err != nil {
			return fail(err)
		}
		return done(ApproveDelete)

	case ApproveDelete:
		del, err := e.Delete(ctx, res.Branch)
		res.Deleted = del
		if err != nil {
			res.DeleteErr = err
			if errors.Is(err, ErrPrecondition) {
				e.logger.Warn("branch kept", "branch", res.Branch, "reason", err)
			} else {
				e.logger.Warn("cleanup incomplete, continuing to push", "branch", res.Branch, "err", err)
			}
		}
		return done(ApprovePush)

	case ApprovePush:
		if e.confirm.Confirm(ctx, fmt.Sprintf("Push %s to origin?", e.mainBranch()), true) {
			if err := e.PushMain(ctx); err != nil {
				return fail(err)
			}
			res.Pushed = true
		}
		return done(ApproveDone)
	}
	return ApproveFailed
}
