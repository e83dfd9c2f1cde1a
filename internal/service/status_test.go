// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "stopped", StatusStopped.String())
	assert.Equal(t, "starting", StatusStarting.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "error", StatusError.String())

	data, err := json.Marshal(StatusRunning)
	require.NoError(t, err)
	assert.Equal(t, `"running"`, string(data))
}

func TestTransitionTable_Closed(t *testing.T) {
	all := []Status{StatusStopped, StatusStarting, StatusRunning, StatusError}
	allowed := map[[2]Status]bool{
		{StatusStopped, StatusStarting}: true,
		{StatusStarting, StatusRunning}: true,
		{StatusStarting, StatusError}:   true,
		{StatusStarting, StatusStopped}: true,
		{StatusRunning, StatusStopped}:  true,
		{StatusRunning, StatusError}:    true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTracker_ErrorRequiresRestart(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Transition(StatusStarting, ""))
	require.NoError(t, tr.Transition(StatusError, "boom"))
	assert.Equal(t, "boom", tr.Get().Message)

	assert.ErrorIs(t, tr.Transition(StatusStarting, ""), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Transition(StatusStopped, ""), ErrInvalidTransition)
	assert.ErrorIs(t, tr.Transition(StatusRunning, ""), ErrInvalidTransition)
	assert.Equal(t, StatusError, tr.Status())

	require.NoError(t, tr.Restart())
	assert.Equal(t, StatusStarting, tr.Status())
}

func TestTracker_RestartOnlyFromStoppedOrError(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.Restart())
	require.NoError(t, tr.Transition(StatusRunning, ""))
	assert.ErrorIs(t, tr.Restart(), ErrInvalidTransition)
}

func TestTracker_OnChange(t *testing.T) {
	tr := NewTracker()
	var seen []string
	tr.OnChange(func(from Status, to StatusInfo) {
		seen = append(seen, from.String()+">"+to.Status.String())
	})

	require.NoError(t, tr.Transition(StatusStarting, ""))
	require.NoError(t, tr.Transition(StatusRunning, ""))
	assert.Error(t, tr.Transition(StatusStarting, ""))

	assert.Equal(t, []string{"stopped>starting", "starting>running"}, seen)
}
