// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session spawns agent sessions and tracks the ones this process
// started, and separately detects agent processes in the process table.
// The two views are never merged automatically.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/procs"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Worktrees is the part of the worktree manager sessions need.
type Worktrees interface {
	Resolve(ctx context.Context, project config.ProjectConfig, branch string, create bool) (string, error)
	Remove(ctx context.Context, project config.ProjectConfig, path string) error
}

// SpawnRequest describes a session to start.
type SpawnRequest struct {
	Project      config.ProjectConfig
	Branch       string
	CreateBranch bool
	Headless     bool
	Task         string
}

// Options configures a Registry.
type Options struct {
	Config    *config.Config
	Worktrees Worktrees
	Launcher  Launcher
	// Detector, when set, resolves the pid of sessions whose launcher
	// cannot report one.
	Detector *Detector
	Killer   procs.Killer
	// Signal delivers a named signal to a process group.
	Signal func(pid int, sig string) error
	Alive  func(pid int) bool
	Bus    events.Bus
	Logger *log.Logger
	// TempDir is where task directories are created; empty means os.TempDir.
	TempDir string
	// ResolveAttempts and ResolveInterval bound pid resolution after launch.
	ResolveAttempts int
	ResolveInterval time.Duration
}

// Registry owns the managed sessions of this process. Ids come from a
// counter that only increases, so they are never reused.
type Registry struct {
	cfg       *config.Config
	worktrees Worktrees
	launcher  Launcher
	detector  *Detector
	killer    procs.Killer
	signal    func(pid int, sig string) error
	alive     func(pid int) bool
	bus       events.Bus
	logger    *log.Logger
	tempDir   string
	attempts  int
	interval  time.Duration

	mu       sync.Mutex
	counter  int
	sessions map[string]*ManagedSession
	seq      map[string]int
	projects map[string]config.ProjectConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		cfg:       opts.Config,
		worktrees: opts.Worktrees,
		launcher:  opts.Launcher,
		detector:  opts.Detector,
		killer:    opts.Killer,
		signal:    opts.Signal,
		alive:     opts.Alive,
		bus:       opts.Bus,
		logger:    opts.Logger,
		tempDir:   opts.TempDir,
		attempts:  opts.ResolveAttempts,
		interval:  opts.ResolveInterval,
		sessions:  make(map[string]*ManagedSession),
		seq:       make(map[string]int),
		projects:  make(map[string]config.ProjectConfig),
	}
	if r.cfg == nil {
		r.cfg = &config.Config{MainBranch: "main"}
	}
	if r.killer == nil {
		r.killer = procs.OSKiller
	}
	if r.signal == nil {
		r.signal = procs.SignalGroup
	}
	if r.alive == nil {
		r.alive = procs.Alive
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.attempts <= 0 {
		r.attempts = 5
	}
	if r.interval <= 0 {
		r.interval = 500 * time.Millisecond
	}
	return r
}

func (r *Registry) mainBranch() string {
	if r.cfg.MainBranch == "" {
		return "main"
	}
	return r.cfg.MainBranch
}

// Spawn starts an agent session. A branch other than main runs in its own
// worktree; main runs in the project root. The agent is launched detached
// and never waited on.
func (r *Registry) Spawn(ctx context.Context, req SpawnRequest) (ManagedSession, error) {
	if r.launcher == nil {
		return ManagedSession{}, errors.New("no launcher configured")
	}

	r.mu.Lock()
	r.counter++
	n := r.counter
	r.mu.Unlock()

	branch := req.Branch
	if branch == "" {
		branch = r.mainBranch()
	}
	agent := r.cfg.Agent
	s := ManagedSession{
		ID:       fmt.Sprintf("session-%d", n),
		Name:     fmt.Sprintf("%s %d (%s)", displayName(agent), n, modeLabel(req.Headless)),
		Branch:   branch,
		Project:  req.Project.Name,
		Dir:      req.Project.Path,
		Headless: req.Headless,
		Task:     req.Task,
	}

	if branch != r.mainBranch() {
		if r.worktrees == nil {
			return ManagedSession{}, errors.New("no worktree manager configured")
		}
		path, err := r.worktrees.Resolve(ctx, req.Project, branch, req.CreateBranch)
		if err != nil {
			r.logger.Error("session not started: worktree unavailable", "branch", branch, "err", err)
			return ManagedSession{}, err
		}
		s.Dir = path
		s.WorktreePath = path
	}

	taskDir, taskFile, err := WriteTaskFile(r.tempDir, req.Task)
	if err != nil {
		return ManagedSession{}, err
	}

	var before map[int]bool
	if r.detector != nil {
		before = r.knownAgents(ctx)
	}

	r.logger.Info("starting session", "name", s.Name, "branch", branch, "dir", s.Dir)
	if req.Task != "" {
		r.logger.Info("task", "text", truncate(req.Task, 60))
	}
	pid, err := r.launcher.Launch(ctx, LaunchRequest{
		Title:   fmt.Sprintf("%s %d", displayName(agent), n),
		Dir:     s.Dir,
		Command: AgentCommand(agent, taskFile, req.Headless),
		LogPath: filepath.Join(taskDir, logFileName),
	})
	if err != nil {
		os.RemoveAll(taskDir)
		return ManagedSession{}, fmt.Errorf("launch %s: %w", s.Name, err)
	}
	if pid == 0 && r.detector != nil {
		pid = r.resolvePID(ctx, s.Dir, before)
	}

	s.PID = pid
	s.StartTime = time.Now()
	s.Status = StatusRunning

	r.mu.Lock()
	r.sessions[s.ID] = &s
	r.seq[s.ID] = n
	r.projects[s.ID] = req.Project
	r.mu.Unlock()

	if req.Headless {
		r.logger.Warn("headless session auto-accepts all agent actions", "session", s.ID)
	}
	r.publish(ctx, events.SessionStarted, s)
	return s, nil
}

func (r *Registry) knownAgents(ctx context.Context) map[int]bool {
	known := make(map[int]bool)
	list, err := r.detector.inspector.List(ctx)
	if err != nil {
		return known
	}
	for _, p := range list {
		if r.detector.matches(p.Command) {
			known[p.PID] = true
		}
	}
	return known
}

// resolvePID looks for a new agent process running in dir. It gives up
// after a bounded number of scans and returns 0.
func (r *Registry) resolvePID(ctx context.Context, dir string, before map[int]bool) int {
	want := filepath.Clean(dir)
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return 0
			case <-time.After(r.interval):
			}
		}
		found, err := r.detector.Scan(ctx)
		if err != nil {
			continue
		}
		for _, d := range found {
			if !before[d.PID] && d.Dir != "" && filepath.Clean(d.Dir) == want {
				return d.PID
			}
		}
	}
	r.logger.Debug("could not resolve session pid", "dir", dir)
	return 0
}

// List returns managed sessions in creation order with refreshed status.
func (r *Registry) List() []ManagedSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ManagedSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		r.refresh(s)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] < r.seq[out[j].ID] })
	return out
}

// Get returns a session by id.
func (r *Registry) Get(id string) (ManagedSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ManagedSession{}, false
	}
	r.refresh(s)
	return *s, true
}

// Latest returns the most recently started session.
func (r *Registry) Latest() (ManagedSession, bool) {
	list := r.List()
	if len(list) == 0 {
		return ManagedSession{}, false
	}
	return list[len(list)-1], true
}

// refresh marks a session stopped once its process is gone. Caller holds mu.
func (r *Registry) refresh(s *ManagedSession) {
	if s.Status == StatusRunning && s.PID > 0 && !r.alive(s.PID) {
		s.Status = StatusStopped
	}
}

// Remove drops a session from the registry without signalling it.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	delete(r.seq, id)
	delete(r.projects, id)
	return true
}

// TerminateResult reports what Terminate did.
type TerminateResult struct {
	Session         ManagedSession `json:"session"`
	Signalled       bool           `json:"signalled"`
	WorktreeRemoved bool           `json:"worktreeRemoved"`
}

// Terminate sends SIGTERM (or the platform equivalent) to the session and
// removes it from the registry. removeWorktree is asked whether the
// session's worktree should go too; declining leaves worktree and branch
// for manual cleanup.
func (r *Registry) Terminate(ctx context.Context, id string, removeWorktree func(path string) bool) (TerminateResult, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	var snap ManagedSession
	if ok {
		r.refresh(s)
		snap = *s
	}
	project := r.projects[id]
	r.mu.Unlock()
	if !ok {
		return TerminateResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	res := TerminateResult{Session: snap}
	switch {
	case snap.PID == 0:
		r.logger.Warn("session pid unknown; close its terminal window to stop it", "session", id)
	case snap.Status == StatusRunning:
		if err := r.signal(snap.PID, "SIGTERM"); err != nil {
			if err := r.killer.Kill(snap.PID, procs.Graceful); err != nil && r.alive(snap.PID) {
				return res, fmt.Errorf("terminate %s (pid %d): %w", id, snap.PID, err)
			}
		}
		res.Signalled = true
	}

	r.Remove(id)
	res.Session.Status = StatusStopped

	var wtErr error
	if snap.WorktreePath != "" && removeWorktree != nil && removeWorktree(snap.WorktreePath) {
		if err := r.worktrees.Remove(ctx, project, snap.WorktreePath); err != nil {
			wtErr = fmt.Errorf("remove worktree %s: %w", snap.WorktreePath, err)
		} else {
			res.WorktreeRemoved = true
		}
	} else if snap.WorktreePath != "" {
		r.logger.Info("worktree kept; remove it before deleting the branch", "path", snap.WorktreePath)
	}

	r.publish(ctx, events.SessionTerminated, res.Session)
	return res, wtErr
}

// KillPIDs terminates each pid independently and reports which died.
// Managed sessions among them are marked stopped.
func (r *Registry) KillPIDs(ctx context.Context, pids []int, s procs.Strength) procs.KillReport {
	report := procs.KillAll(r.killer, pids, s)

	r.mu.Lock()
	for _, pid := range report.Killed {
		for _, ms := range r.sessions {
			if ms.PID == pid {
				ms.Status = StatusStopped
			}
		}
	}
	r.mu.Unlock()

	r.logger.Info("kill complete", "strength", s, "killed", len(report.Killed), "failed", len(report.Failed))
	if r.bus != nil {
		r.bus.Publish(ctx, events.Event{
			Type: events.SessionsKilled,
			Payload: map[string]interface{}{
				"strength": s.String(),
				"killed":   report.Killed,
				"failed":   report.Failed,
			},
		})
	}
	return report
}

func (r *Registry) publish(ctx context.Context, typ string, s ManagedSession) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, events.Event{
		Type:    typ,
		Project: s.Project,
		Payload: map[string]interface{}{
			"id":       s.ID,
			"name":     s.Name,
			"branch":   s.Branch,
			"pid":      s.PID,
			"headless": s.Headless,
		},
	})
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
