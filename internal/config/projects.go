// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrProjectNotFound is returned when a project name is not registered.
var ErrProjectNotFound = errors.New("project not found")

// Projects is the persisted registry of project roots. Entries are added
// or updated, never deleted.
type Projects struct {
	mu   sync.RWMutex
	path string
	cfg  ProjectsConfig
}

// LoadProjects reads the registry stored in root. If the file is absent it
// is created with a single default entry for root itself.
func LoadProjects(root string) (*Projects, error) {
	p := &Projects{path: filepath.Join(root, ProjectsFileName)}

	err := decodeFile(p.path, &p.cfg)
	if errors.Is(err, os.ErrNotExist) {
		name := filepath.Base(root)
		p.cfg = ProjectsConfig{
			Projects:       []ProjectConfig{{Name: name, Path: root}},
			DefaultProject: name,
		}
		return p, p.save()
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Path returns the registry file location.
func (p *Projects) Path() string {
	return p.path
}

// List returns a copy of all registered projects.
func (p *Projects) List() []ProjectConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ProjectConfig, len(p.cfg.Projects))
	copy(out, p.cfg.Projects)
	return out
}

// Get looks up a project by name.
func (p *Projects) Get(name string) (ProjectConfig, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pc := range p.cfg.Projects {
		if pc.Name == name {
			return pc, nil
		}
	}
	return ProjectConfig{}, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
}

// Default returns the default project, or the first entry if none is set.
func (p *Projects) Default() (ProjectConfig, error) {
	p.mu.RLock()
	name := p.cfg.DefaultProject
	var first *ProjectConfig
	if len(p.cfg.Projects) > 0 {
		first = &p.cfg.Projects[0]
	}
	p.mu.RUnlock()

	if name != "" {
		if pc, err := p.Get(name); err == nil {
			return pc, nil
		}
	}
	if first == nil {
		return ProjectConfig{}, ErrProjectNotFound
	}
	return *first, nil
}

// Add registers a project, replacing any entry with the same path.
func (p *Projects) Add(pc ProjectConfig) error {
	if pc.Name == "" || pc.Path == "" {
		return fmt.Errorf("project name and path are required")
	}
	abs, err := filepath.Abs(pc.Path)
	if err == nil {
		pc.Path = abs
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.cfg.Projects {
		if existing.Path == pc.Path {
			p.cfg.Projects[i] = pc
			return p.save()
		}
	}
	p.cfg.Projects = append(p.cfg.Projects, pc)
	return p.save()
}

func (p *Projects) save() error {
	return writeJSON(p.path, p.cfg)
}

// WorktreeDirFor returns where worktrees for pc live, defaulting to a
// sibling directory named "<name>-worktrees".
func WorktreeDirFor(pc ProjectConfig) string {
	if pc.WorktreeDir != "" {
		return pc.WorktreeDir
	}
	return filepath.Join(filepath.Dir(filepath.Clean(pc.Path)), strings.ToLower(pc.Name)+"-worktrees")
}
