// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package service supervises the auxiliary apps under test: the adapter
// abstraction over heterogeneous dev servers, the app status state machine,
// the readiness poll and the combined app log.
package service

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Status is the process-wide app status.
type Status int

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// ErrInvalidTransition is returned for a transition outside the table.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the closed transition table. Error has no outgoing
// edge here: leaving it requires Restart.
var transitions = map[Status][]Status{
	StatusStopped:  {StatusStarting},
	StatusStarting: {StatusRunning, StatusError, StatusStopped},
	StatusRunning:  {StatusStopped, StatusError},
	StatusError:    {},
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusInfo is a snapshot of the tracker.
type StatusInfo struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

// Tracker is the single owner of the app status.
type Tracker struct {
	mu       sync.Mutex
	info     StatusInfo
	onChange func(from Status, to StatusInfo)
}

// NewTracker creates a tracker in StatusStopped.
func NewTracker() *Tracker {
	return &Tracker{info: StatusInfo{Status: StatusStopped, ChangedAt: time.Now()}}
}

// OnChange registers a callback run after every accepted transition.
func (t *Tracker) OnChange(fn func(from Status, to StatusInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Get returns the current status snapshot.
func (t *Tracker) Get() StatusInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

// Status returns the current status.
func (t *Tracker) Status() Status {
	return t.Get().Status
}

// Transition moves to the given status if the table allows it.
func (t *Tracker) Transition(to Status, message string) error {
	return t.move(to, message, false)
}

// Restart moves to StatusStarting. It is the only way out of StatusError.
func (t *Tracker) Restart() error {
	return t.move(StatusStarting, "", true)
}

func (t *Tracker) move(to Status, message string, restart bool) error {
	t.mu.Lock()
	from := t.info.Status
	allowed := CanTransition(from, to) || (restart && from == StatusError && to == StatusStarting)
	if !allowed {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t.info = StatusInfo{Status: to, Message: message, ChangedAt: time.Now()}
	info := t.info
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(from, info)
	}
	return nil
}
