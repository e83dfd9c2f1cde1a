// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/parallel/internal/git"
	"github.com/wingedpig/parallel/internal/procs"
)

const unknown = "unknown"

// DetectorOptions configures a Detector.
type DetectorOptions struct {
	Inspector procs.Inspector
	Git       git.Runner
	// ProcessName is the agent binary name matched against command lines.
	ProcessName string
	// Exclude lists binary names never reported, normally this tool's own.
	Exclude []string
	// Self is excluded by pid; defaults to os.Getpid().
	Self int
	// Timeout bounds the whole enrichment phase of a scan.
	Timeout time.Duration
	// Concurrency bounds parallel cwd/branch lookups.
	Concurrency int
}

// Detector finds agent processes in the OS process table, including ones
// this process did not start.
type Detector struct {
	inspector   procs.Inspector
	git         git.Runner
	name        string
	exclude     []string
	self        int
	timeout     time.Duration
	concurrency int
}

// NewDetector creates a detector.
func NewDetector(opts DetectorOptions) *Detector {
	d := &Detector{
		inspector:   opts.Inspector,
		git:         opts.Git,
		name:        opts.ProcessName,
		exclude:     opts.Exclude,
		self:        opts.Self,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
	}
	if d.name == "" {
		d.name = "claude"
	}
	if d.self == 0 {
		d.self = os.Getpid()
	}
	if d.timeout <= 0 {
		d.timeout = procs.DefaultQueryTimeout
	}
	if d.concurrency <= 0 {
		d.concurrency = 8
	}
	return d
}

// Scan lists agent processes. Enrichment is best effort: a process whose
// directory cannot be read is still reported, with unknown branch and
// project.
func (d *Detector) Scan(ctx context.Context) ([]DetectedSession, error) {
	list, err := d.inspector.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	seen := make(map[int]bool)
	var found []DetectedSession
	for _, p := range list {
		if p.PID == d.self || seen[p.PID] || !d.matches(p.Command) {
			continue
		}
		seen[p.PID] = true
		tty := p.TTY
		if IsOrphan(tty) {
			tty = ""
		}
		found = append(found, DetectedSession{
			PID:        p.PID,
			Name:       fmt.Sprintf("PID %d", p.PID),
			Branch:     unknown,
			Project:    unknown,
			TTY:        tty,
			IsOrphaned: IsOrphan(p.TTY),
		})
	}

	ectx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i := range found {
		s := &found[i]
		g.Go(func() error {
			d.enrich(ectx, s)
			return nil
		})
	}
	g.Wait()

	sort.Slice(found, func(i, j int) bool { return found[i].PID < found[j].PID })
	return found, nil
}

func (d *Detector) enrich(ctx context.Context, s *DetectedSession) {
	cwd, err := d.inspector.Cwd(ctx, s.PID)
	if err != nil || cwd == "" {
		return
	}
	s.Dir = cwd
	s.Name = filepath.Base(cwd)
	if d.git == nil {
		return
	}
	if branch, err := git.CurrentBranch(ctx, d.git, cwd); err == nil && branch != "" {
		s.Branch = branch
	}
	if top, err := git.TopLevel(ctx, d.git, cwd); err == nil && top != "" {
		s.Project = filepath.Base(top)
	}
}

// matches reports whether any word of command names the agent binary,
// which covers both direct runs and "node /path/to/claude".
func (d *Detector) matches(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	first := binaryName(fields[0])
	for _, ex := range d.exclude {
		if ex != "" && first == ex {
			return false
		}
	}
	if shells[first] && len(fields) > 1 && (fields[1] == "-c" || strings.EqualFold(fields[1], "/c")) {
		return false
	}
	for _, f := range fields {
		if binaryName(f) == d.name {
			return true
		}
	}
	return false
}

// shells running "-c <line>" only wrap the agent.
var shells = map[string]bool{"sh": true, "bash": true, "zsh": true, "dash": true, "cmd": true}

func binaryName(word string) string {
	base := filepath.Base(strings.ReplaceAll(word, `\`, "/"))
	for _, ext := range []string{".exe", ".cmd", ".js"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Orphans returns the orphaned subset of sessions.
func Orphans(sessions []DetectedSession) []DetectedSession {
	var out []DetectedSession
	for _, s := range sessions {
		if s.IsOrphaned {
			out = append(out, s)
		}
	}
	return out
}

// PIDs returns the pids of sessions.
func PIDs(sessions []DetectedSession) []int {
	out := make([]int, len(sessions))
	for i, s := range sessions {
		out[i] = s.PID
	}
	return out
}
