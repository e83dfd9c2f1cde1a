// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/wingedpig/parallel/internal/procs"
)

// WindowName groups every agent tab in one Windows Terminal window.
const WindowName = "Parallel"

// NewLauncher returns the platform launcher: a Windows Terminal tab, then
// a plain console window.
func NewLauncher(logger *log.Logger) Launcher {
	return &Chain{
		Launchers: []Launcher{wtLauncher{}, consoleLauncher{}},
		Logger:    logger,
	}
}

type wtLauncher struct{}

func (wtLauncher) Name() string { return "wt" }

func (wtLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	wt, err := exec.LookPath("wt")
	if err != nil {
		return 0, err
	}
	cmd := exec.Command(wt, "-w", WindowName, "new-tab", "--title", req.Title, "-d", req.Dir, "cmd", "/k", req.Command)
	return 0, startDetached(cmd)
}

type consoleLauncher struct{}

func (consoleLauncher) Name() string { return "cmd" }

func (consoleLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	cmd := exec.Command("cmd", "/c", "start", "cmd", "/k", req.Command)
	cmd.Dir = req.Dir
	return 0, startDetached(cmd)
}

func startDetached(cmd *exec.Cmd) error {
	procs.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
