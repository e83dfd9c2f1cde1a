// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// LaunchRequest describes an agent to start in its own terminal.
type LaunchRequest struct {
	Title   string
	Dir     string
	Command string
	// LogPath receives the session's output when the launcher owns the
	// terminal itself rather than handing off to a terminal emulator.
	LogPath string
}

// Launcher starts an agent detached from this process. The returned pid is
// zero when the mechanism cannot report it (e.g. AppleScript).
type Launcher interface {
	Name() string
	Launch(ctx context.Context, req LaunchRequest) (int, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, req LaunchRequest) (int, error)

func (f LauncherFunc) Name() string { return "func" }

func (f LauncherFunc) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	return f(ctx, req)
}

// Chain tries each launcher in order and returns the first success.
type Chain struct {
	Launchers []Launcher
	Logger    *log.Logger
}

func (c *Chain) Name() string {
	if len(c.Launchers) == 0 {
		return "none"
	}
	return c.Launchers[0].Name()
}

func (c *Chain) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	var errs []error
	for _, l := range c.Launchers {
		pid, err := l.Launch(ctx, req)
		if err == nil {
			return pid, nil
		}
		if c.Logger != nil {
			c.Logger.Warn("launcher failed, trying next", "launcher", l.Name(), "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
	}
	if len(errs) == 0 {
		return 0, errors.New("no launcher available")
	}
	return 0, errors.Join(errs...)
}
