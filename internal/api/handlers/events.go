// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wingedpig/parallel/internal/events"
)

const (
	pingInterval = 54 * time.Second
	pongWait     = 60 * time.Second
)

// The API binds to loopback or a tailnet, so any origin is accepted.
var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// readUntilClosed drains client frames so pongs and close frames are
// processed. The returned channel closes when the client goes away.
func readUntilClosed(conn *websocket.Conn) <-chan struct{} {
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}

// EventHandler serves the event bus over HTTP.
type EventHandler struct {
	bus events.Bus
}

// NewEventHandler returns an EventHandler reading from bus.
func NewEventHandler(bus events.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

// History returns retained events. Query: type (repeatable pattern),
// project, since (RFC 3339), limit.
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := events.Filter{Types: q["type"], Project: q.Get("project")}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid limit: "+s)
			return
		}
		filter.Limit = n
	}
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid since: "+s)
			return
		}
		filter.Since = t
	}

	list := h.bus.History(filter)
	if list == nil {
		list = []events.Event{}
	}
	WriteJSON(w, http.StatusOK, list)
}

// WebSocket streams events matching ?pattern= (default all) as JSON.
func (h *EventHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	subID, ch, err := h.bus.SubscribeChan(pattern, 100)
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer h.bus.Unsubscribe(subID)

	done := readUntilClosed(conn)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok || conn.WriteJSON(ev) != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
