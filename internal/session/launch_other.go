// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !darwin && !windows

package session

import "github.com/charmbracelet/log"

// NewLauncher returns the platform launcher: tmux, then a detached pty.
func NewLauncher(logger *log.Logger) Launcher {
	return &Chain{
		Launchers: []Launcher{NewTmuxLauncher(), NewPTYLauncher()},
		Logger:    logger,
	}
}
