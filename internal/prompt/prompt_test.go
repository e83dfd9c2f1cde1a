// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Prompter = (*Terminal)(nil)
	_ Prompter = (*Script)(nil)
	_ Prompter = Always(true)
)

func TestScript(t *testing.T) {
	ctx := context.Background()
	s := &Script{
		Confirms: map[string]bool{"Delete": true},
		Selects:  []string{"b", "c"},
		Inputs:   []string{"fix login"},
	}

	assert.True(t, s.Confirm(ctx, "Delete local branch x?", false))
	assert.False(t, s.Confirm(ctx, "Push?", false))

	v, err := s.Select(ctx, "pick", nil)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	v, _ = s.Select(ctx, "pick", nil)
	assert.Equal(t, "c", v)
	_, err = s.Select(ctx, "pick", nil)
	assert.ErrorIs(t, err, ErrAborted)

	in, err := s.Input(ctx, "task", "")
	require.NoError(t, err)
	assert.Equal(t, "fix login", in)

	_, err = s.MultiSelect(ctx, "kill", nil)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Len(t, s.Asked, 7)
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true).Confirm(context.Background(), "x", false))
	assert.False(t, Always(false).Confirm(context.Background(), "x", true))
	_, err := Always(true).Select(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrAborted)
}

func TestTerminalSelectEmpty(t *testing.T) {
	_, err := NewTerminal().Select(context.Background(), "pick", nil)
	assert.ErrorIs(t, err, ErrAborted)
}
