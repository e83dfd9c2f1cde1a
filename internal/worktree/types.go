// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package worktree binds session branches to git worktrees.
package worktree

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Info describes one entry of `git worktree list`.
type Info struct {
	Path     string `json:"path"`
	Commit   string `json:"commit"`
	Branch   string `json:"branch"`
	Detached bool   `json:"detached,omitempty"`
	Bare     bool   `json:"bare,omitempty"`
}

// Name returns the directory name of the worktree.
func (w Info) Name() string {
	return filepath.Base(w.Path)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// DirName derives the worktree folder for branch: the prefix is stripped
// and every character outside [a-zA-Z0-9-] becomes a hyphen.
//
//	DirName("claude/", "claude/Fix Bug #2") == "Fix-Bug--2"
func DirName(prefix, branch string) string {
	name := strings.TrimPrefix(branch, prefix)
	return unsafeChars.ReplaceAllString(name, "-")
}

// ParsePorcelain parses `git worktree list --porcelain`. Blocks are
// separated by blank lines:
//
//	worktree /path/to/worktree
//	HEAD abc1234...
//	branch refs/heads/main
func ParsePorcelain(output string) []Info {
	result := []Info{}
	for _, block := range strings.Split(output, "\n\n") {
		var info Info
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "worktree "):
				info.Path = strings.TrimPrefix(line, "worktree ")
			case strings.HasPrefix(line, "HEAD "):
				info.Commit = strings.TrimPrefix(line, "HEAD ")
			case strings.HasPrefix(line, "branch "):
				info.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
			case line == "bare":
				info.Bare = true
			case line == "detached":
				info.Detached = true
			}
		}
		if info.Path != "" {
			result = append(result, info)
		}
	}
	return result
}
