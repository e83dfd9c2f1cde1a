// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/procs"
)

var (
	// ErrNoApp is returned when the project has no app to run.
	ErrNoApp = errors.New("no app configured for this project")
	// ErrStopped is returned by Start when a stop or a newer start ended
	// the readiness wait.
	ErrStopped = errors.New("app stopped during startup")
)

// Options configures a Supervisor.
type Options struct {
	Config    *config.Config
	Dir       string
	Project   string
	Bus       events.Bus
	Inspector procs.Inspector
	Logger    *log.Logger

	// Adapters overrides selection from Config.
	Adapters []Adapter
}

// Supervisor owns the active adapter family and the app status.
type Supervisor struct {
	mu       sync.Mutex
	adapters []Adapter
	tracker  *Tracker
	log      *AppLog
	bus      events.Bus
	logger   *log.Logger
	project  string
	interval time.Duration
	timeout  time.Duration

	// pending is the start currently waiting for readiness.
	pending *startAttempt
}

type startAttempt struct {
	cancel     context.CancelFunc
	superseded bool
}

// NewSupervisor selects the adapters for opts.Dir and starts in StatusStopped.
func NewSupervisor(opts Options) *Supervisor {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &Supervisor{
		tracker:  NewTracker(),
		log:      NewAppLog(opts.Dir),
		bus:      opts.Bus,
		logger:   opts.Logger,
		project:  opts.Project,
		interval: DefaultReadyInterval,
		timeout:  DefaultReadyTimeout,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	s.tracker.OnChange(s.publish)

	s.adapters = opts.Adapters
	if s.adapters == nil {
		s.adapters = Select(cfg, Env{
			Dir:       opts.Dir,
			Log:       s.log,
			Inspector: opts.Inspector,
			OnExit:    s.handleExit,
		})
	}
	return s
}

// Adapters returns the active adapters.
func (s *Supervisor) Adapters() []Adapter {
	return s.adapters
}

// Kind returns the active adapter family.
func (s *Supervisor) Kind() Kind {
	if len(s.adapters) == 0 {
		return KindNull
	}
	return s.adapters[0].Kind()
}

// Configured reports whether there is an app to run.
func (s *Supervisor) Configured() bool {
	return s.Kind() != KindNull
}

// Log returns the app log.
func (s *Supervisor) Log() *AppLog {
	return s.log
}

// Status returns the current status snapshot.
func (s *Supervisor) Status() StatusInfo {
	return s.tracker.Get()
}

// IsRunning polls every adapter and is true only when all of them are up.
// It is the readiness condition. The answer is stale as soon as it returns.
func (s *Supervisor) IsRunning(ctx context.Context) bool {
	if !s.Configured() {
		return false
	}
	for _, a := range s.adapters {
		if !a.IsRunning(ctx) {
			return false
		}
	}
	return true
}

// AnyRunning is true when any adapter still has a live process, whether
// started by this supervisor or left over from an earlier run.
func (s *Supervisor) AnyRunning(ctx context.Context) bool {
	for _, a := range s.adapters {
		if Active(ctx, a) {
			return true
		}
	}
	return false
}

// Start kills whatever the adapters still track, truncates the app log,
// starts every adapter and waits for readiness. From StatusError this is
// the explicit restart.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.Configured() {
		return ErrNoApp
	}
	attempt, pollCtx, err := s.launch(ctx)
	if err != nil {
		return err
	}
	defer attempt.cancel()

	err = WaitReady(pollCtx, s.IsRunning, s.tracker.Status, s.interval, s.timeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt.superseded {
		return ErrStopped
	}
	s.pending = nil

	switch {
	case err == nil:
		s.tracker.Transition(StatusRunning, "")
		s.logger.Info("app is ready")
		return nil
	case errors.Is(err, ErrReadyTimeout):
		msg := fmt.Sprintf("not ready after %s", s.timeout)
		s.tracker.Transition(StatusError, msg)
		s.logger.Error("app failed to start", "reason", msg, "log", s.log.Path())
		return fmt.Errorf("%w: %s", ErrReadyTimeout, msg)
	case errors.Is(err, ErrExitedEarly):
		s.logger.Error("app exited during startup", "reason", s.tracker.Get().Message, "log", s.log.Path())
		return err
	default:
		s.tracker.Transition(StatusError, "start cancelled")
		return err
	}
}

// launch moves to Starting and starts every adapter. The returned attempt
// is registered as pending so that a stop, which takes s.mu while the
// readiness wait runs unlocked, can cancel the returned context.
func (s *Supervisor) launch(ctx context.Context) (*startAttempt, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersede()
	switch s.tracker.Status() {
	case StatusRunning, StatusStarting:
		s.killAll(ctx)
		if err := s.tracker.Transition(StatusStopped, "restarting"); err != nil {
			return nil, nil, err
		}
		fallthrough
	case StatusStopped:
		if err := s.tracker.Transition(StatusStarting, ""); err != nil {
			return nil, nil, err
		}
	case StatusError:
		if err := s.tracker.Restart(); err != nil {
			return nil, nil, err
		}
	}

	if _, err := s.log.Truncate(); err != nil {
		s.tracker.Transition(StatusError, err.Error())
		return nil, nil, err
	}
	for _, a := range s.adapters {
		s.logger.Info("starting app", "adapter", a.Name(), "kind", a.Kind())
		if err := a.Start(ctx); err != nil {
			s.tracker.Transition(StatusError, err.Error())
			return nil, nil, err
		}
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.pending = &startAttempt{cancel: cancel}
	return s.pending, pollCtx, nil
}

// supersede ends the pending readiness wait, if any. Callers hold s.mu.
func (s *Supervisor) supersede() {
	if s.pending == nil {
		return
	}
	s.pending.superseded = true
	s.pending.cancel()
	s.pending = nil
}

// Restart is Start: kill-then-start.
func (s *Supervisor) Restart(ctx context.Context) error {
	return s.Start(ctx)
}

// Stop stops every adapter. A failure on one does not skip the others.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.halt(ctx, func(a Adapter) error { return a.Stop(ctx) })
}

// Kill force-stops every adapter.
func (s *Supervisor) Kill(ctx context.Context) error {
	return s.halt(ctx, func(a Adapter) error { return a.Kill(ctx) })
}

func (s *Supervisor) halt(ctx context.Context, fn func(Adapter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersede()
	var errs []error
	for _, a := range s.adapters {
		if err := fn(a); err != nil {
			s.logger.Warn("stop failed", "adapter", a.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
		}
	}
	switch s.tracker.Status() {
	case StatusRunning, StatusStarting:
		s.tracker.Transition(StatusStopped, "stopped")
	}
	s.log.Close()
	return errors.Join(errs...)
}

func (s *Supervisor) killAll(ctx context.Context) {
	for _, a := range s.adapters {
		if err := a.Kill(ctx); err != nil {
			s.logger.Warn("kill failed", "adapter", a.Name(), "err", err)
		}
	}
}

// handleExit runs on the exit watcher goroutine. A non-zero exit code
// moves the app to Error; a clean or signalled exit while running moves
// it to Stopped.
func (s *Supervisor) handleExit(adapter string, code int) {
	if code > 0 {
		msg := fmt.Sprintf("%s exited with code %d", adapter, code)
		if err := s.tracker.Transition(StatusError, msg); err == nil {
			s.logger.Error("app exited", "adapter", adapter, "code", code)
		}
		return
	}
	if s.tracker.Status() == StatusRunning {
		s.tracker.Transition(StatusStopped, fmt.Sprintf("%s exited", adapter))
	}
}

func (s *Supervisor) publish(from Status, to StatusInfo) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(context.Background(), events.Event{
		Type:    events.AppStatusChanged,
		Project: s.project,
		Payload: map[string]interface{}{
			"from":    from.String(),
			"to":      to.Status.String(),
			"message": to.Message,
		},
	})
}
