// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the read-mostly status API: sessions, branches, the
// app supervisor and the event stream.
package api

import (
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/wingedpig/parallel/internal/api/handlers"
	"github.com/wingedpig/parallel/internal/api/middleware"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/logging"
)

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Sessions handlers.SessionLister
	Detector handlers.Scanner
	Branches handlers.BranchLister
	App      handlers.AppController
	Bus      events.Bus
	Logger   *log.Logger
	Version  string
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Version(deps.Version))

	api := r.PathPrefix("/api/v1").Subrouter()

	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Detector)
	api.HandleFunc("/sessions", sessionHandler.List).Methods("GET")
	api.HandleFunc("/sessions/detected", sessionHandler.Detected).Methods("GET")
	api.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET")

	branchHandler := handlers.NewBranchHandler(deps.Branches)
	api.HandleFunc("/branches", branchHandler.List).Methods("GET")

	appHandler := handlers.NewAppHandler(deps.App, logger)
	api.HandleFunc("/app", appHandler.Get).Methods("GET")
	api.HandleFunc("/app/start", appHandler.Start).Methods("POST")
	api.HandleFunc("/app/stop", appHandler.Stop).Methods("POST")
	api.HandleFunc("/app/logs", appHandler.Logs).Methods("GET")
	api.HandleFunc("/app/logs/ws", appHandler.LogsWebSocket).Methods("GET")

	eventHandler := handlers.NewEventHandler(deps.Bus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	return r
}
