// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/gitflow"
	"github.com/wingedpig/parallel/internal/service"
	"github.com/wingedpig/parallel/internal/session"
)

// Mock implementations

type mockSessions struct {
	list []session.ManagedSession
}

func (m *mockSessions) List() []session.ManagedSession { return m.list }

func (m *mockSessions) Get(id string) (session.ManagedSession, bool) {
	for _, s := range m.list {
		if s.ID == id {
			return s, true
		}
	}
	return session.ManagedSession{}, false
}

type mockScanner struct {
	found []session.DetectedSession
	err   error
}

func (m *mockScanner) Scan(ctx context.Context) ([]session.DetectedSession, error) {
	return m.found, m.err
}

type mockBranches struct {
	list []gitflow.Branch
	err  error
}

func (m *mockBranches) Branches(ctx context.Context) ([]gitflow.Branch, error) {
	return m.list, m.err
}

type mockApp struct {
	mu         sync.Mutex
	configured bool
	status     service.Status
	stopErr    error
	started    chan struct{}
	log        *service.AppLog
}

func newMockApp(t *testing.T) *mockApp {
	return &mockApp{
		configured: true,
		started:    make(chan struct{}, 1),
		log:        service.NewAppLog(t.TempDir()),
	}
}

func (m *mockApp) Configured() bool     { return m.configured }
func (m *mockApp) Kind() service.Kind   { return service.KindCommand }
func (m *mockApp) Log() *service.AppLog { return m.log }

func (m *mockApp) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.status = service.StatusStopped
	return nil
}

func (m *mockApp) Status() service.StatusInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return service.StatusInfo{Status: m.status}
}

func (m *mockApp) Start(context.Context) error {
	m.mu.Lock()
	m.status = service.StatusRunning
	m.mu.Unlock()
	m.started <- struct{}{}
	return nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorInfo      `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) *ErrorInfo {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if v != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env.Error
}

func TestSessionHandler_List(t *testing.T) {
	h := NewSessionHandler(&mockSessions{list: []session.ManagedSession{
		{ID: "session-1", Name: "Claude 1 (interactive)", PID: 42, Branch: "main", Status: session.StatusRunning},
	}}, &mockScanner{})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/sessions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []session.ManagedSession
	assert.Nil(t, decode(t, rec, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "session-1", got[0].ID)
	assert.Equal(t, 42, got[0].PID)
}

func TestSessionHandler_ListEmptyIsArray(t *testing.T) {
	h := NewSessionHandler(&mockSessions{}, &mockScanner{})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/sessions", nil))

	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestSessionHandler_Get(t *testing.T) {
	h := NewSessionHandler(&mockSessions{list: []session.ManagedSession{{ID: "session-2"}}}, &mockScanner{})
	r := mux.NewRouter()
	r.HandleFunc("/sessions/{id}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions/session-2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions/session-9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errInfo := decode(t, rec, nil)
	require.NotNil(t, errInfo)
	assert.Equal(t, ErrNotFound, errInfo.Code)
}

func TestSessionHandler_Detected(t *testing.T) {
	scanner := &mockScanner{found: []session.DetectedSession{
		{PID: 10, TTY: "ttys001"},
		{PID: 11, TTY: "??", IsOrphaned: true},
	}}
	h := NewSessionHandler(&mockSessions{}, scanner)

	tests := []struct {
		name string
		url  string
		pids []int
	}{
		{"all", "/api/v1/sessions/detected", []int{10, 11}},
		{"orphaned only", "/api/v1/sessions/detected?orphaned=true", []int{11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Detected(rec, httptest.NewRequest("GET", tt.url, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			var got []session.DetectedSession
			decode(t, rec, &got)
			assert.Equal(t, tt.pids, session.PIDs(got))
		})
	}
}

func TestSessionHandler_DetectedError(t *testing.T) {
	h := NewSessionHandler(&mockSessions{}, &mockScanner{err: errors.New("ps failed")})

	rec := httptest.NewRecorder()
	h.Detected(rec, httptest.NewRequest("GET", "/api/v1/sessions/detected", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errInfo := decode(t, rec, nil)
	require.NotNil(t, errInfo)
	assert.Equal(t, ErrSessionError, errInfo.Code)
	assert.Equal(t, "ps failed", errInfo.Message)
}

func TestBranchHandler_List(t *testing.T) {
	h := NewBranchHandler(&mockBranches{list: []gitflow.Branch{
		{Name: "claude/login", IsLocal: true, Ahead: 2, Behind: 1},
	}})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/branches", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []gitflow.Branch
	decode(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Ahead)
	assert.Equal(t, 1, got[0].Behind)
}

func TestBranchHandler_Error(t *testing.T) {
	h := NewBranchHandler(&mockBranches{err: errors.New("not a git repository")})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/v1/branches", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrGitError, decode(t, rec, nil).Code)
}

func TestAppHandler_Get(t *testing.T) {
	app := newMockApp(t)
	h := NewAppHandler(app, nil)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/v1/app", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	decode(t, rec, &got)
	assert.Equal(t, true, got["configured"])
	assert.Equal(t, "stopped", got["status"])
	assert.Equal(t, app.log.Path(), got["logPath"])
}

func TestAppHandler_StartRunsInBackground(t *testing.T) {
	app := newMockApp(t)
	h := NewAppHandler(app, nil)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/v1/app/start", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case <-app.started:
	case <-time.After(2 * time.Second):
		t.Fatal("app was not started")
	}
	assert.Equal(t, service.StatusRunning, app.Status().Status)
}

func TestAppHandler_StartWithoutApp(t *testing.T) {
	app := newMockApp(t)
	app.configured = false
	h := NewAppHandler(app, nil)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/v1/app/start", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, ErrConflict, decode(t, rec, nil).Code)
}

func TestAppHandler_Stop(t *testing.T) {
	tests := []struct {
		name    string
		stopErr error
		code    int
		errCode string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"no app", service.ErrNoApp, http.StatusConflict, ErrConflict},
		{"failure", errors.New("kill failed"), http.StatusInternalServerError, ErrAppError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp(t)
			app.stopErr = tt.stopErr
			h := NewAppHandler(app, nil)

			rec := httptest.NewRecorder()
			h.Stop(rec, httptest.NewRequest("POST", "/api/v1/app/stop", nil))

			assert.Equal(t, tt.code, rec.Code)
			errInfo := decode(t, rec, nil)
			if tt.errCode == "" {
				assert.Nil(t, errInfo)
				return
			}
			require.NotNil(t, errInfo)
			assert.Equal(t, tt.errCode, errInfo.Code)
		})
	}
}

func TestAppHandler_Logs(t *testing.T) {
	app := newMockApp(t)
	require.NoError(t, os.WriteFile(app.log.Path(), []byte("one\ntwo\nthree\n"), 0644))
	h := NewAppHandler(app, nil)

	rec := httptest.NewRecorder()
	h.Logs(rec, httptest.NewRequest("GET", "/api/v1/app/logs?lines=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []string
	decode(t, rec, &got)
	assert.Equal(t, []string{"two", "three"}, got)

	rec = httptest.NewRecorder()
	h.Logs(rec, httptest.NewRequest("GET", "/api/v1/app/logs?lines=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppHandler_LogsMissingFile(t *testing.T) {
	h := NewAppHandler(newMockApp(t), nil)

	rec := httptest.NewRecorder()
	h.Logs(rec, httptest.NewRequest("GET", "/api/v1/app/logs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestEventHandler_History(t *testing.T) {
	bus := events.NewMemoryBus(10)
	defer bus.Close()
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.SessionStarted, Project: "web"}))
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.GitRebased, Project: "web"}))
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.GitMerged, Project: "api"}))

	h := NewEventHandler(bus)

	tests := []struct {
		name  string
		url   string
		types []string
	}{
		{"all", "/api/v1/events", []string{events.SessionStarted, events.GitRebased, events.GitMerged}},
		{"pattern", "/api/v1/events?type=git.*", []string{events.GitRebased, events.GitMerged}},
		{"project", "/api/v1/events?project=web", []string{events.SessionStarted, events.GitRebased}},
		{"limit keeps newest", "/api/v1/events?limit=1", []string{events.GitMerged}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.History(rec, httptest.NewRequest("GET", tt.url, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			var got []events.Event
			decode(t, rec, &got)
			var types []string
			for _, e := range got {
				types = append(types, e.Type)
			}
			assert.Equal(t, tt.types, types)
		})
	}
}

func TestEventHandler_HistoryBadQuery(t *testing.T) {
	h := NewEventHandler(events.NewMemoryBus(10))

	for _, url := range []string{"/api/v1/events?limit=-1", "/api/v1/events?since=yesterday"} {
		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest("GET", url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}
