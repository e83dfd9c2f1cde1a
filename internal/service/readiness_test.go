// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitReady_BecomesReady(t *testing.T) {
	var polls atomic.Int32
	ready := func(context.Context) bool { return polls.Add(1) >= 3 }
	status := func() Status { return StatusStarting }

	err := WaitReady(context.Background(), ready, status, 5*time.Millisecond, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitReady_Timeout(t *testing.T) {
	ready := func(context.Context) bool { return false }
	status := func() Status { return StatusStarting }

	start := time.Now()
	err := WaitReady(context.Background(), ready, status, 5*time.Millisecond, 40*time.Millisecond)
	assert.ErrorIs(t, err, ErrReadyTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitReady_ExitsEarlyOnError(t *testing.T) {
	var st atomic.Int32
	st.Store(int32(StatusStarting))
	go func() {
		time.Sleep(20 * time.Millisecond)
		st.Store(int32(StatusError))
	}()

	ready := func(context.Context) bool { return false }
	status := func() Status { return Status(st.Load()) }

	start := time.Now()
	err := WaitReady(context.Background(), ready, status, 5*time.Millisecond, 10*time.Second)
	assert.ErrorIs(t, err, ErrExitedEarly)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitReady(ctx, func(context.Context) bool { return false }, func() Status { return StatusStarting }, time.Second, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
