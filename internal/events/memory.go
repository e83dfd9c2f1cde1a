// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with an unknown ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// DefaultHistorySize bounds the retained history.
const DefaultHistorySize = 1000

// MemoryBus is an in-memory Bus.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    map[SubscriptionID]*subscription
	history []Event
	max     int
	closed  atomic.Bool
}

type subscription struct {
	pattern string
	handler Handler
	ch      chan Event
}

// NewMemoryBus creates a bus keeping at most historySize events.
func NewMemoryBus(historySize int) *MemoryBus {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &MemoryBus{
		subs: make(map[SubscriptionID]*subscription),
		max:  historySize,
	}
}

// Publish records the event and delivers it to matching subscribers.
// Channel subscribers never block the publisher; a full buffer drops.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if len(b.history) > b.max {
		b.history = b.history[len(b.history)-b.max:]
	}
	b.mu.Unlock()

	// Channel sends happen under the read lock so Unsubscribe cannot close
	// a channel mid-send.
	var handlers []Handler
	b.mu.RLock()
	for _, s := range b.subs {
		if !Match(event.Type, s.pattern) {
			continue
		}
		if s.ch == nil {
			handlers = append(handlers, s.handler)
			continue
		}
		select {
		case s.ch <- event:
		default:
			log.Printf("events: dropped %s, subscriber buffer full", event.Type)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("events: handler panic for %s: %v", event.Type, r)
				}
			}()
			h(ctx, event)
		}()
	}
	return nil
}

// Subscribe registers a synchronous handler.
func (b *MemoryBus) Subscribe(pattern string, handler Handler) (SubscriptionID, error) {
	return b.add(&subscription{pattern: pattern, handler: handler})
}

// SubscribeChan registers a buffered channel subscriber. The channel is
// closed by Unsubscribe or Close.
func (b *MemoryBus) SubscribeChan(pattern string, buffer int) (SubscriptionID, <-chan Event, error) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	id, err := b.add(&subscription{pattern: pattern, ch: ch})
	if err != nil {
		return "", nil, err
	}
	return id, ch, nil
}

func (b *MemoryBus) add(s *subscription) (SubscriptionID, error) {
	if b.closed.Load() {
		return "", ErrBusClosed
	}
	if s.pattern == "" {
		return "", errors.New("empty pattern")
	}
	id := SubscriptionID(uuid.NewString())
	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()
	return id, nil
}

// Unsubscribe removes a subscription.
func (b *MemoryBus) Unsubscribe(id SubscriptionID) error {
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if !ok {
		return ErrSubscriptionNotFound
	}
	if s.ch != nil {
		close(s.ch)
	}
	return nil
}

// History returns retained events matching filter, oldest first.
func (b *MemoryBus) History(filter Filter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0)
	for _, e := range b.history {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}

func matches(e Event, f Filter) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, p := range f.Types {
			if Match(e.Type, p) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Project != "" && e.Project != f.Project {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Close shuts the bus down and closes channel subscribers.
func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.mu.Lock()
	for id, s := range b.subs {
		if s.ch != nil {
			close(s.ch)
		}
		delete(b.subs, id)
	}
	b.mu.Unlock()
	return nil
}
