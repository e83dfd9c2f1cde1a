// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gitflow

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/wingedpig/parallel/internal/git"
)

// Branch is a snapshot of one session branch. Ahead and Behind count
// commits relative to main.
type Branch struct {
	Name           string `json:"name"`
	IsLocal        bool   `json:"isLocal"`
	IsRemote       bool   `json:"isRemote"`
	Ahead          int    `json:"ahead"`
	Behind         int    `json:"behind"`
	LastCommit     string `json:"lastCommit"`
	LastCommitTime string `json:"lastCommitTime"`
}

const branchFormat = "%(refname:short)|%(committerdate:relative)|%(subject)"

// ParseBranchLine parses one line of `git branch --format` output using
// branchFormat. The subject may itself contain "|".
func ParseBranchLine(line string) (Branch, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), "|", 3)
	if len(parts) < 3 || parts[0] == "" {
		return Branch{}, false
	}
	return Branch{Name: parts[0], LastCommitTime: parts[1], LastCommit: parts[2]}, true
}

// Branches lists local and origin branches under the branch prefix with
// their ahead/behind counts. Recomputed on every call.
func (e *Engine) Branches(ctx context.Context) ([]Branch, error) {
	prefix := e.cfg.BranchPrefix
	byName := make(map[string]*Branch)

	local, err := e.run(ctx, e.root(), "branch", "--format="+branchFormat)
	if err != nil {
		return nil, err
	}
	for _, line := range git.Lines(local) {
		b, ok := ParseBranchLine(line)
		if !ok || !strings.HasPrefix(b.Name, prefix) {
			continue
		}
		b.IsLocal = true
		byName[b.Name] = &b
	}

	// Remote listing is best effort: a repo without origin still lists locals.
	remote, err := e.run(ctx, e.root(), "branch", "-r", "--format="+branchFormat)
	if err == nil {
		for _, line := range git.Lines(remote) {
			b, ok := ParseBranchLine(line)
			if !ok || !strings.HasPrefix(b.Name, "origin/") {
				continue
			}
			b.Name = strings.TrimPrefix(b.Name, "origin/")
			if !strings.HasPrefix(b.Name, prefix) {
				continue
			}
			if existing, ok := byName[b.Name]; ok {
				existing.IsRemote = true
				continue
			}
			b.IsRemote = true
			byName[b.Name] = &b
		}
	}

	branches := make([]Branch, 0, len(byName))
	for _, b := range byName {
		ref := b.Name
		if !b.IsLocal {
			ref = "origin/" + b.Name
		}
		b.Ahead = e.count(ctx, e.mainBranch()+".."+ref)
		b.Behind = e.count(ctx, ref+".."+e.mainBranch())
		branches = append(branches, *b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// count returns `git rev-list --count spec`, or 0 if git fails.
func (e *Engine) count(ctx context.Context, spec string) int {
	out, err := e.run(ctx, e.root(), "rev-list", "--count", spec)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimSpace(out))
	return n
}

// Commit is one commit unique to a session branch.
type Commit struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
}

// CommitsAhead lists the commits on branch that are not on main, newest first.
func (e *Engine) CommitsAhead(ctx context.Context, branch string) ([]Commit, error) {
	out, err := e.run(ctx, e.root(), "log", e.mainBranch()+".."+branch, "--oneline")
	if err != nil {
		return nil, err
	}
	var commits []Commit
	for _, line := range git.Lines(out) {
		hash, subject, _ := strings.Cut(line, " ")
		commits = append(commits, Commit{Hash: hash, Subject: subject})
	}
	return commits, nil
}
