// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import "time"

// Status is the liveness of a managed session as last observed.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// ManagedSession is an agent session this process spawned. PID is a weak
// reference: the registry never owns the child, it only signals it. PID is
// zero when the launcher could not report it and detection found no match.
type ManagedSession struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PID          int       `json:"pid,omitempty"`
	Branch       string    `json:"branch"`
	Project      string    `json:"project"`
	Dir          string    `json:"dir"`
	WorktreePath string    `json:"worktreePath,omitempty"`
	StartTime    time.Time `json:"startTime"`
	Status       Status    `json:"status"`
	Headless     bool      `json:"headless"`
	Task         string    `json:"task,omitempty"`
}

// DetectedSession is an agent process found in the process table. It is
// rebuilt on every scan. Branch and Project are "unknown" when the working
// directory could not be resolved.
type DetectedSession struct {
	PID        int    `json:"pid"`
	Name       string `json:"name"`
	Branch     string `json:"branch"`
	Project    string `json:"project"`
	Dir        string `json:"dir,omitempty"`
	TTY        string `json:"tty,omitempty"`
	IsOrphaned bool   `json:"isOrphaned"`
}

// IsOrphan reports whether a terminal device field means "no controlling
// terminal". ps prints "?" on Linux and "??" on macOS.
func IsOrphan(tty string) bool {
	switch tty {
	case "", "?", "??", "-":
		return true
	}
	return false
}
