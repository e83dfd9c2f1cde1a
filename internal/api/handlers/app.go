// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/service"
)

// AppController is the app supervisor of the current project.
type AppController interface {
	Configured() bool
	Kind() service.Kind
	Status() service.StatusInfo
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Log() *service.AppLog
}

// AppInfo is the status payload.
type AppInfo struct {
	Configured bool   `json:"configured"`
	Kind       string `json:"kind"`
	service.StatusInfo
	LogPath string `json:"logPath,omitempty"`
}

// AppHandler serves app status and control.
type AppHandler struct {
	app    AppController
	logger *log.Logger
}

// NewAppHandler creates a new app handler.
func NewAppHandler(app AppController, logger *log.Logger) *AppHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AppHandler{app: app, logger: logger}
}

func (h *AppHandler) info() AppInfo {
	info := AppInfo{
		Configured: h.app.Configured(),
		Kind:       h.app.Kind().String(),
		StatusInfo: h.app.Status(),
	}
	if l := h.app.Log(); l != nil {
		info.LogPath = l.Path()
	}
	return info
}

// Get returns the app status.
func (h *AppHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.info())
}

// Start begins a start in the background and returns immediately. Poll
// Get or watch the event stream for the outcome.
func (h *AppHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.app.Configured() {
		WriteError(w, http.StatusConflict, ErrConflict, service.ErrNoApp.Error())
		return
	}
	ctx := context.WithoutCancel(r.Context())
	go func() {
		err := h.app.Start(ctx)
		switch {
		case errors.Is(err, service.ErrStopped):
			h.logger.Info("app start ended by stop")
		case err != nil:
			h.logger.Error("app start failed", "err", err)
		}
	}()
	WriteJSON(w, http.StatusAccepted, h.info())
}

// Stop stops the app and waits for it.
func (h *AppHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Stop(r.Context()); err != nil {
		if errors.Is(err, service.ErrNoApp) {
			WriteError(w, http.StatusConflict, ErrConflict, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, ErrAppError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, h.info())
}

// Logs returns the last ?lines= lines of the app log (default 100).
func (h *AppHandler) Logs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if s := r.URL.Query().Get("lines"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid lines: "+s)
			return
		}
		n = v
	}
	lines, err := h.app.Log().Tail(n)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrAppError, err.Error())
		return
	}
	if lines == nil {
		lines = []string{}
	}
	WriteJSON(w, http.StatusOK, lines)
}

// LogsWebSocket streams app log lines as text messages. ?from=start
// replays the file before following.
func (h *AppHandler) LogsWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	lines, err := h.app.Log().Follow(ctx, r.URL.Query().Get("from") == "start")
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	done := readUntilClosed(conn)
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
