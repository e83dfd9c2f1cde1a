// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gitflow lands session branches: inspection, rebase onto main,
// fast-forward merge, deletion, the compound approve, pull-with-stash and
// cherry-pick promotion for local testing.
//
// Every operation that touches the main checkout assumes a single operator;
// nothing here takes a lock on it.
package gitflow

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/git"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/procs"
	"github.com/wingedpig/parallel/internal/worktree"
)

var (
	// ErrConflict means git stopped for a human to resolve conflicts.
	ErrConflict = errors.New("conflict requires manual resolution")
	// ErrNotFastForward means main and the branch have diverged.
	ErrNotFastForward = errors.New("not a fast-forward")
	// ErrPrecondition means the operation was blocked before any change.
	ErrPrecondition = errors.New("precondition failed")
	// ErrCancelled means the operator declined a confirmation.
	ErrCancelled = errors.New("cancelled")
	// ErrNothingToPick means the branch has no commits ahead of main.
	ErrNothingToPick = errors.New("no commits ahead of main")
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string, def bool) bool
}

// Worktrees is the part of the worktree manager the engine needs.
type Worktrees interface {
	FindByBranch(ctx context.Context, project config.ProjectConfig, branch string) (worktree.Info, bool, error)
	Remove(ctx context.Context, project config.ProjectConfig, path string) error
}

// App is the part of the app supervisor the engine needs.
type App interface {
	IsRunning(ctx context.Context) bool
	Start(ctx context.Context) error
}

// ShellFunc runs a shell command line in dir.
type ShellFunc func(ctx context.Context, dir, line string) error

// Options configures an Engine.
type Options struct {
	Git       git.Runner
	Project   config.ProjectConfig
	Config    *config.Config
	Confirm   Confirmer
	Worktrees Worktrees
	App       App
	Bus       events.Bus
	Logger    *log.Logger
	Shell     ShellFunc
}

// Engine runs the branch integration workflows against one project.
type Engine struct {
	git       git.Runner
	project   config.ProjectConfig
	cfg       *config.Config
	confirm   Confirmer
	worktrees Worktrees
	app       App
	bus       events.Bus
	logger    *log.Logger
	shell     ShellFunc
}

// New creates an engine.
func New(opts Options) *Engine {
	e := &Engine{
		git:       opts.Git,
		project:   opts.Project,
		cfg:       opts.Config,
		confirm:   opts.Confirm,
		worktrees: opts.Worktrees,
		app:       opts.App,
		bus:       opts.Bus,
		logger:    opts.Logger,
		shell:     opts.Shell,
	}
	if e.cfg == nil {
		e.cfg = &config.Config{BranchPrefix: config.DefaultBranchPrefix, MainBranch: "main"}
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	if e.shell == nil {
		e.shell = runShell
	}
	if e.confirm == nil {
		e.confirm = always(false)
	}
	return e
}

type always bool

func (a always) Confirm(context.Context, string, bool) bool { return bool(a) }

func (e *Engine) mainBranch() string {
	if e.cfg.MainBranch == "" {
		return "main"
	}
	return e.cfg.MainBranch
}

func (e *Engine) root() string {
	return e.project.Path
}

func (e *Engine) run(ctx context.Context, dir string, args ...string) (string, error) {
	e.logger.Debug("git", "dir", dir, "args", args)
	return e.git.Run(ctx, dir, args...)
}

// CurrentBranch returns the branch checked out in the main checkout.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	return git.CurrentBranch(ctx, e.git, e.root())
}

// HasLocalChanges reports uncommitted changes in dir.
func (e *Engine) HasLocalChanges(ctx context.Context, dir string) (bool, error) {
	out, err := e.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// BranchName applies the branch prefix to a bare name. Names that already
// carry the prefix, and the main branch, are returned unchanged.
func (e *Engine) BranchName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == e.mainBranch() || strings.HasPrefix(name, e.cfg.BranchPrefix) {
		return name
	}
	return e.cfg.BranchPrefix + name
}

// Checkout switches the main checkout to branch, e.g. to test it there.
func (e *Engine) Checkout(ctx context.Context, branch string) error {
	_, err := e.run(ctx, e.root(), "checkout", branch)
	return err
}

// PushMain pushes main to origin.
func (e *Engine) PushMain(ctx context.Context) error {
	_, err := e.run(ctx, e.root(), "push", "origin", e.mainBranch())
	return err
}

func (e *Engine) publish(ctx context.Context, typ string, payload map[string]interface{}) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ctx, events.Event{Type: typ, Project: e.project.Name, Payload: payload})
}

func (e *Engine) failed(ctx context.Context, op, branch string, err error) error {
	e.logger.Error(op+" failed", "branch", branch, "err", err)
	e.publish(ctx, events.GitFailed, map[string]interface{}{"op": op, "branch": branch, "error": err.Error()})
	return err
}

// runShell runs line with the operator's terminal attached.
func runShell(ctx context.Context, dir, line string) error {
	cmd := procs.ShellCommand(ctx, line)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
