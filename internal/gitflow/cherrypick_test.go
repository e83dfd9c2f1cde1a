// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickRange(t *testing.T) {
	commits := []Commit{{Hash: "c3"}, {Hash: "c2"}, {Hash: "c1"}}

	assert.Equal(t, "c3", PickRange(commits, SelectLatest))
	assert.Equal(t, "c1^..c3", PickRange(commits, SelectAll))
	assert.Equal(t, "c9", PickRange([]Commit{{Hash: "c9"}}, SelectAll))
	assert.Equal(t, "", PickRange(nil, SelectAll))
}

func TestCherryPick_All(t *testing.T) {
	e, h := newEngine(t, nil)
	h.git.
		On("branch --show-current", "main", nil).
		On("log main..claude/a --oneline", "c3 third\nc2 second\nc1 first", nil)

	res, err := e.CherryPick(context.Background(), "claude/a", SelectAll)
	require.NoError(t, err)
	assert.Equal(t, "c1^..c3", res.Range)
	assert.Len(t, res.Commits, 3)
	assert.Equal(t, "third", res.Commits[0].Subject)
	assert.True(t, h.git.Called("cherry-pick -X theirs c1^..c3"))
}

func TestCherryPick_Latest(t *testing.T) {
	e, h := newEngine(t, nil)
	h.git.
		On("branch --show-current", "main", nil).
		On("log main..claude/a", "c3 third\nc2 second\nc1 first", nil)

	res, err := e.CherryPick(context.Background(), "claude/a", SelectLatest)
	require.NoError(t, err)
	assert.Equal(t, "c3", res.Range)
	assert.Len(t, res.Commits, 1)
	assert.True(t, h.git.Called("cherry-pick -X theirs c3"))
}

func TestCherryPick_RequiresMain(t *testing.T) {
	e, h := newEngine(t, nil)
	h.git.On("branch --show-current", "claude/other", nil)

	_, err := e.CherryPick(context.Background(), "claude/a", SelectAll)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.False(t, h.git.Called("cherry-pick"))
}

func TestCherryPick_NothingAhead(t *testing.T) {
	e, h := newEngine(t, nil)
	h.git.On("branch --show-current", "main", nil)

	_, err := e.CherryPick(context.Background(), "claude/a", SelectAll)
	assert.ErrorIs(t, err, ErrNothingToPick)
}

func TestCherryPick_ConflictAbort(t *testing.T) {
	e, h := newEngine(t, answers{"Abort": true})
	h.git.
		On("branch --show-current", "main", nil).
		On("log main..claude/a", "c1 only", nil).
		Fail("cherry-pick -X theirs", "error: could not apply c1")

	res, err := e.CherryPick(context.Background(), "claude/a", SelectAll)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, res.Conflict)
	assert.True(t, res.Aborted)
	assert.True(t, h.git.Called("cherry-pick --abort"))
}

func TestCherryPick_ConflictLeftForManual(t *testing.T) {
	e, h := newEngine(t, answers{"Abort": false})
	h.git.
		On("branch --show-current", "main", nil).
		On("log main..claude/a", "c1 only", nil).
		Fail("cherry-pick -X theirs", "error: could not apply c1")

	res, err := e.CherryPick(context.Background(), "claude/a", SelectAll)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "git cherry-pick --continue")
	assert.False(t, res.Aborted)
	assert.False(t, h.git.Called("cherry-pick --abort"))
}

func TestAbortCherryPick(t *testing.T) {
	e, h := newEngine(t, answers{"Abort": false})
	h.git.
		On("branch --show-current", "main", nil).
		On("log main..claude/a", "c1 only", nil).
		Fail("cherry-pick -X theirs", "error: could not apply c1")

	_, err := e.CherryPick(context.Background(), "claude/a", SelectAll)
	require.ErrorIs(t, err, ErrConflict)
	require.True(t, e.CherryPickInProgress(context.Background()))

	require.NoError(t, e.AbortCherryPick(context.Background()))
	assert.True(t, h.git.Called("cherry-pick --abort"))
	assert.Greater(t, h.git.Index("cherry-pick --abort"), h.git.Index("rev-parse -q --verify CHERRY_PICK_HEAD"))
}

func TestAbortCherryPick_NothingInProgress(t *testing.T) {
	e, h := newEngine(t, nil)
	h.git.Fail("rev-parse -q --verify CHERRY_PICK_HEAD", "")

	err := e.AbortCherryPick(context.Background())
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.False(t, h.git.Called("cherry-pick --abort"))
}

func TestApprove_NeverUsesTheirsPolicy(t *testing.T) {
	e, h := newEngine(t, answers{"Approve": true, "Delete": true, "Push": false})
	res := e.Approve(context.Background(), "claude/a")
	require.NoError(t, res.Err)
	for _, c := range h.git.Calls() {
		assert.NotContains(t, c, "theirs")
	}
}
