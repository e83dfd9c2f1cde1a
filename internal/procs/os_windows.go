// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build windows

package procs

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
)

const cimQuery = "Get-CimInstance Win32_Process | Select-Object ProcessId,CommandLine | ConvertTo-Csv -NoTypeInformation"

// NewInspector returns the PowerShell/tasklist inspector.
func NewInspector() Inspector {
	return &windowsInspector{}
}

type windowsInspector struct{}

// List joins command lines from PowerShell with console window titles
// from tasklist. A process without a window reports an empty TTY.
func (i *windowsInspector) List(ctx context.Context) ([]Process, error) {
	out, err := Run(ctx, DefaultQueryTimeout, "powershell", "-NoProfile", "-Command", cimQuery)
	if err != nil {
		return nil, err
	}
	list := ParseCimCSV(out)

	titles := map[int]string{}
	if tl, err := Run(ctx, DefaultQueryTimeout, "tasklist", "/V", "/FO", "CSV", "/NH"); err == nil {
		titles = ParseTasklistCSV(tl)
	}
	for idx := range list {
		if t := titles[list[idx].PID]; t != "" {
			list[idx].TTY = "console"
		}
	}
	return list, nil
}

func (i *windowsInspector) Cwd(ctx context.Context, pid int) (string, error) {
	return "", ErrUnsupported
}

// Detach starts cmd in a new process group without a console of its own.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// Terminate runs taskkill, adding /F for Force.
func Terminate(pid int, s Strength) error {
	args := []string{"/PID", strconv.Itoa(pid)}
	if s == Force {
		args = append(args, "/F")
	}
	if _, err := Run(context.Background(), DefaultQueryTimeout, "taskkill", args...); err != nil {
		return fmt.Errorf("taskkill %d: %w", pid, err)
	}
	return nil
}

// SignalGroup kills the process tree rooted at pid. Windows has no
// signals, so SIGKILL maps to a forced kill and everything else to a
// graceful one.
func SignalGroup(pid int, name string) error {
	args := []string{"/T", "/PID", strconv.Itoa(pid)}
	if name == "SIGKILL" || name == "KILL" {
		args = append(args, "/F")
	}
	_, err := Run(context.Background(), DefaultQueryTimeout, "taskkill", args...)
	return err
}

// ShellCommand builds a command running line through cmd.exe.
func ShellCommand(ctx context.Context, line string) *exec.Cmd {
	return exec.CommandContext(ctx, "cmd", "/C", line)
}
