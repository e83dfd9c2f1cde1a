// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus for app, session and
// git workflow notifications.
package events

import (
	"context"
	"time"
)

// Event is an immutable notification record.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Project   string                 `json:"project,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Handler processes received events.
type Handler func(ctx context.Context, event Event)

// SubscriptionID identifies a subscription.
type SubscriptionID string

// Filter selects events from history.
type Filter struct {
	Types   []string // patterns, see Match
	Project string
	Since   time.Time
	Limit   int
}

// Bus publishes events to subscribers and keeps a bounded history.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(pattern string, handler Handler) (SubscriptionID, error)
	SubscribeChan(pattern string, buffer int) (SubscriptionID, <-chan Event, error)
	Unsubscribe(id SubscriptionID) error
	History(filter Filter) []Event
	Close() error
}

// Event types
const (
	AppStatusChanged = "app.status"
	AppLogTruncated  = "app.log.truncated"

	SessionStarted    = "session.started"
	SessionTerminated = "session.terminated"
	SessionsKilled    = "session.killed"

	WorktreeCreated = "worktree.created"
	WorktreeRemoved = "worktree.removed"

	GitRebased      = "git.rebased"
	GitMerged       = "git.merged"
	GitDeleted      = "git.deleted"
	GitApproved     = "git.approved"
	GitPulled       = "git.pulled"
	GitCherryPicked = "git.cherrypicked"
	GitFailed       = "git.failed"
)
