// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, log.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, log.InfoLevel, ParseLevel(""))
	assert.Equal(t, log.InfoLevel, ParseLevel("verbose"))
}

func TestNew_RespectsEnv(t *testing.T) {
	t.Setenv(LevelEnv, "error")
	var buf bytes.Buffer
	logger := New(&buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Error("shown", "branch", "claude/x")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "claude/x")
}

func TestStyles_KeepText(t *testing.T) {
	assert.Contains(t, Status("running"), "running")
	assert.Contains(t, Orphan(true), "orphaned")
	assert.Contains(t, AheadBehind(3, 0), "+3")
	assert.Contains(t, Dot(true), "●")
	assert.Contains(t, Dot(false), "○")
}
