// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultReadyInterval is the readiness poll period.
	DefaultReadyInterval = 2 * time.Second
	// DefaultReadyTimeout is the readiness ceiling.
	DefaultReadyTimeout = 120 * time.Second
)

var (
	// ErrReadyTimeout is returned when the ceiling elapses first.
	ErrReadyTimeout = errors.New("app did not become ready in time")
	// ErrExitedEarly is returned when the status moved to Error mid-poll.
	ErrExitedEarly = errors.New("app exited before becoming ready")
)

// WaitReady polls ready every interval until it reports true, the status
// becomes Error, timeout elapses, or ctx is done. The status is re-read
// on every iteration because an exit watcher may set Error at any time.
func WaitReady(ctx context.Context, ready func(context.Context) bool, status func() Status, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if status() == StatusError {
			return ErrExitedEarly
		}
		if ready(ctx) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if status() == StatusError {
				return ErrExitedEarly
			}
			return ErrReadyTimeout
		case <-ticker.C:
		}
	}
}
