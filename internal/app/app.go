// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app holds the orchestrator context: the current project and the
// components bound to it. Every operator action goes through an *App
// instead of package-level state.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/events"
	"github.com/wingedpig/parallel/internal/git"
	"github.com/wingedpig/parallel/internal/gitflow"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/procs"
	"github.com/wingedpig/parallel/internal/prompt"
	"github.com/wingedpig/parallel/internal/service"
	"github.com/wingedpig/parallel/internal/session"
	"github.com/wingedpig/parallel/internal/worktree"
)

var (
	// ErrNotRepo is fatal at startup.
	ErrNotRepo = errors.New("not a git repository")
	// ErrConfigExists is returned by Init without force.
	ErrConfigExists = errors.New("config already exists")
)

// Options configures an App. Zero values select the real OS
// implementations.
type Options struct {
	Dir       string
	Git       git.Runner
	Inspector procs.Inspector
	Launcher  session.Launcher
	Killer    procs.Killer
	Prompter  prompt.Prompter
	Logger    *log.Logger
	Shell     gitflow.ShellFunc
	// Adapters overrides app adapter selection for every project.
	Adapters func(project config.ProjectConfig) []service.Adapter
	Version  string
}

// App is the orchestrator context.
type App struct {
	mu sync.RWMutex

	root      string
	version   string
	git       git.Runner
	inspector procs.Inspector
	prompter  prompt.Prompter
	logger    *log.Logger
	shell     gitflow.ShellFunc
	adapters  func(config.ProjectConfig) []service.Adapter
	loader    *config.Loader
	bus       *events.MemoryBus
	projects  *config.Projects
	sessions  *session.Registry
	detector  *session.Detector

	current   config.ProjectConfig
	cfg       *config.Config
	worktrees *worktree.Manager
	engine    *gitflow.Engine
	// One supervisor per project path, so switching projects never loses
	// track of an app that is still running.
	supervisors map[string]*service.Supervisor

	closeOnce sync.Once
}

// New opens the orchestrator for the repository containing opts.Dir. It
// fails with ErrNotRepo before writing anything when Dir is not in a git
// work tree.
func New(ctx context.Context, opts Options) (*App, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	a := &App{
		version:     opts.Version,
		git:         opts.Git,
		inspector:   opts.Inspector,
		prompter:    opts.Prompter,
		logger:      opts.Logger,
		shell:       opts.Shell,
		adapters:    opts.Adapters,
		loader:      config.NewLoader(),
		supervisors: make(map[string]*service.Supervisor),
	}
	if a.git == nil {
		a.git = git.NewExec()
	}
	if a.inspector == nil {
		a.inspector = procs.NewInspector()
	}
	if a.prompter == nil {
		a.prompter = prompt.NewTerminal()
	}
	if a.logger == nil {
		a.logger = logging.New(os.Stderr)
	}

	if !git.IsRepo(ctx, a.git, dir) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepo, dir)
	}
	root, err := git.TopLevel(ctx, a.git, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRepo, err)
	}
	a.root = filepath.Clean(root)

	a.projects, err = config.LoadProjects(a.root)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	current, err := a.projects.Default()
	if err != nil {
		return nil, err
	}

	rootCfg, err := a.loadConfig(ctx, a.root)
	if err != nil {
		return nil, err
	}

	a.bus = events.NewMemoryBus(0)
	a.detector = session.NewDetector(session.DetectorOptions{
		Inspector:   a.inspector,
		Git:         a.git,
		ProcessName: rootCfg.Agent.ProcessName,
		Exclude:     []string{filepath.Base(os.Args[0])},
	})
	launcher := opts.Launcher
	if launcher == nil {
		launcher = session.NewLauncher(a.logger.WithPrefix("launch"))
	}
	a.sessions = session.NewRegistry(session.Options{
		Config:    rootCfg,
		Worktrees: a.worktreeManager(rootCfg),
		Launcher:  launcher,
		Detector:  a.detector,
		Killer:    opts.Killer,
		Bus:       a.bus,
		Logger:    a.logger.WithPrefix("session"),
	})

	if err := a.use(ctx, current); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) loadConfig(ctx context.Context, root string) (*config.Config, error) {
	cfg, err := a.loader.LoadProject(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", config.ConfigFileName, err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Join(root, config.ConfigFileName), err)
	}
	return cfg, nil
}

func (a *App) worktreeManager(cfg *config.Config) *worktree.Manager {
	return worktree.NewManager(a.git, worktree.Options{
		BranchPrefix: cfg.BranchPrefix,
		MainBranch:   cfg.MainBranch,
		Bus:          a.bus,
		Logger:       a.logger.WithPrefix("worktree"),
	})
}

// use makes pc the current project, binding config, worktrees, engine and
// supervisor to it.
func (a *App) use(ctx context.Context, pc config.ProjectConfig) error {
	cfg, err := a.loadConfig(ctx, pc.Path)
	if err != nil {
		return err
	}
	wts := a.worktreeManager(cfg)

	a.mu.Lock()
	defer a.mu.Unlock()

	sup, ok := a.supervisors[pc.Path]
	if !ok {
		opts := service.Options{
			Config:    cfg,
			Dir:       pc.Path,
			Project:   pc.Name,
			Bus:       a.bus,
			Inspector: a.inspector,
			Logger:    a.logger.WithPrefix("app"),
		}
		if a.adapters != nil {
			opts.Adapters = a.adapters(pc)
		}
		sup = service.NewSupervisor(opts)
		a.supervisors[pc.Path] = sup
	}

	a.current = pc
	a.cfg = cfg
	a.worktrees = wts
	a.engine = gitflow.New(gitflow.Options{
		Git:       a.git,
		Project:   pc,
		Config:    cfg,
		Confirm:   a.prompter,
		Worktrees: wts,
		App:       sup,
		Bus:       a.bus,
		Logger:    a.logger.WithPrefix("git"),
		Shell:     a.shell,
	})
	a.logger.Debug("project selected", "name", pc.Name, "path", pc.Path)
	return nil
}

// SelectProject switches the current project.
func (a *App) SelectProject(ctx context.Context, name string) error {
	pc, err := a.projects.Get(name)
	if err != nil {
		return err
	}
	return a.use(ctx, pc)
}

// AddProject registers a project. It does not switch to it.
func (a *App) AddProject(ctx context.Context, pc config.ProjectConfig) error {
	if !git.IsRepo(ctx, a.git, pc.Path) {
		return fmt.Errorf("%w: %s", ErrNotRepo, pc.Path)
	}
	return a.projects.Add(pc)
}

func (a *App) Root() string                { return a.root }
func (a *App) Version() string             { return a.version }
func (a *App) Bus() events.Bus             { return a.bus }
func (a *App) Logger() *log.Logger         { return a.logger }
func (a *App) Prompter() prompt.Prompter   { return a.prompter }
func (a *App) Projects() *config.Projects  { return a.projects }
func (a *App) Sessions() *session.Registry { return a.sessions }
func (a *App) Detector() *session.Detector { return a.detector }

// Project returns the current project.
func (a *App) Project() config.ProjectConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Config returns the current project's config.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Engine returns the git workflow engine for the current project.
func (a *App) Engine() *gitflow.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// Worktrees returns the worktree manager for the current project.
func (a *App) Worktrees() *worktree.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.worktrees
}

// Supervisor returns the app supervisor of the current project.
func (a *App) Supervisor() *service.Supervisor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.supervisors[a.current.Path]
}

// StartSession spawns an agent session. An empty req.Project means the
// current project; any other project becomes current first.
func (a *App) StartSession(ctx context.Context, req session.SpawnRequest) (session.ManagedSession, error) {
	if req.Project.Path == "" {
		req.Project = a.Project()
	} else if req.Project.Path != a.Project().Path {
		if err := a.use(ctx, req.Project); err != nil {
			return session.ManagedSession{}, err
		}
	}
	if req.Branch != "" {
		req.Branch = a.Engine().BranchName(req.Branch)
	}
	return a.sessions.Spawn(ctx, req)
}

// TerminateSession stops a managed session, asking whether to remove its
// worktree.
func (a *App) TerminateSession(ctx context.Context, id string) (session.TerminateResult, error) {
	return a.sessions.Terminate(ctx, id, func(path string) bool {
		return a.prompter.Confirm(ctx, fmt.Sprintf("Remove worktree at %s?", path), false)
	})
}

// TestBranch checks branch out in the main checkout and restarts the app
// there. A dirty main checkout blocks the switch.
func (a *App) TestBranch(ctx context.Context, branch string) error {
	eng := a.Engine()
	dirty, err := eng.HasLocalChanges(ctx, a.Project().Path)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%w: main checkout has uncommitted changes", gitflow.ErrPrecondition)
	}
	if err := eng.Checkout(ctx, branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	sup := a.Supervisor()
	if !sup.Configured() {
		return nil
	}
	return sup.Start(ctx)
}

// Init writes a starter config for the current project, with the
// framework detected from package.json.
func (a *App) Init(force bool) (string, *config.Config, error) {
	root := a.Project().Path
	path := filepath.Join(root, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, nil, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	cfg, err := config.Scaffold(root)
	if err != nil {
		return path, nil, err
	}
	if err := a.loader.Save(path, cfg); err != nil {
		return path, nil, err
	}
	return path, cfg, nil
}

// RunningApps returns the names of projects with any app process alive.
func (a *App) RunningApps(ctx context.Context) []string {
	a.mu.RLock()
	sups := make(map[string]*service.Supervisor, len(a.supervisors))
	for path, s := range a.supervisors {
		sups[path] = s
	}
	a.mu.RUnlock()

	var names []string
	for path, s := range sups {
		if s.AnyRunning(ctx) {
			names = append(names, a.projectName(path))
		}
	}
	sort.Strings(names)
	return names
}

func (a *App) projectName(path string) string {
	for _, pc := range a.projects.List() {
		if pc.Path == path {
			return pc.Name
		}
	}
	return filepath.Base(path)
}

// Quit offers to stop any running app, then releases resources.
func (a *App) Quit(ctx context.Context) error {
	a.mu.RLock()
	sups := make([]*service.Supervisor, 0, len(a.supervisors))
	paths := make([]string, 0, len(a.supervisors))
	for path, s := range a.supervisors {
		sups = append(sups, s)
		paths = append(paths, path)
	}
	a.mu.RUnlock()

	var errs []error
	for i, s := range sups {
		if !s.AnyRunning(ctx) {
			continue
		}
		q := fmt.Sprintf("The app for %s is still running. Stop it before quitting?", a.projectName(paths[i]))
		if a.prompter.Confirm(ctx, q, true) {
			if err := s.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	a.Close()
	return errors.Join(errs...)
}

// Close releases the event bus. It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.bus.Close()
	})
}
