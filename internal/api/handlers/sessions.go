// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wingedpig/parallel/internal/gitflow"
	"github.com/wingedpig/parallel/internal/session"
)

// SessionLister lists sessions launched by this process.
type SessionLister interface {
	List() []session.ManagedSession
	Get(id string) (session.ManagedSession, bool)
}

// Scanner finds agent processes on the host.
type Scanner interface {
	Scan(ctx context.Context) ([]session.DetectedSession, error)
}

// SessionHandler serves managed and detected sessions.
type SessionHandler struct {
	sessions SessionLister
	detector Scanner
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions SessionLister, detector Scanner) *SessionHandler {
	return &SessionHandler{sessions: sessions, detector: detector}
}

// List returns the managed sessions in creation order.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.List()
	if list == nil {
		list = []session.ManagedSession{}
	}
	WriteJSON(w, http.StatusOK, list)
}

// Get returns one managed session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, ok := h.sessions.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, "session not found: "+id)
		return
	}
	WriteJSON(w, http.StatusOK, s)
}

// Detected scans the host for agent processes. With ?orphaned=true only
// sessions without a terminal are returned.
func (h *SessionHandler) Detected(w http.ResponseWriter, r *http.Request) {
	found, err := h.detector.Scan(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrSessionError, err.Error())
		return
	}
	if r.URL.Query().Get("orphaned") == "true" {
		found = session.Orphans(found)
	}
	if found == nil {
		found = []session.DetectedSession{}
	}
	WriteJSON(w, http.StatusOK, found)
}

// BranchLister lists session branches.
type BranchLister interface {
	Branches(ctx context.Context) ([]gitflow.Branch, error)
}

// BranchHandler serves the branch overview.
type BranchHandler struct {
	branches BranchLister
}

// NewBranchHandler creates a new branch handler.
func NewBranchHandler(branches BranchLister) *BranchHandler {
	return &BranchHandler{branches: branches}
}

// List returns session branches with ahead/behind counts.
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.branches.Branches(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrGitError, err.Error())
		return
	}
	if list == nil {
		list = []gitflow.Branch{}
	}
	WriteJSON(w, http.StatusOK, list)
}
