// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package session

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// PTYLauncher runs the agent on a pseudo-terminal owned by this process,
// for hosts with no terminal emulator or multiplexer. Output is copied to
// LaunchRequest.LogPath. The child leads its own session; when this
// process exits the terminal closes and the agent receives SIGHUP.
type PTYLauncher struct {
	Shell string
	Size  pty.Winsize
}

// NewPTYLauncher creates a launcher using /bin/sh and a 120x40 terminal.
func NewPTYLauncher() *PTYLauncher {
	return &PTYLauncher{Shell: "/bin/sh", Size: pty.Winsize{Rows: 40, Cols: 120}}
}

func (p *PTYLauncher) Name() string { return "pty" }

func (p *PTYLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	var out io.Writer = io.Discard
	var logFile *os.File
	if req.LogPath != "" {
		f, err := os.OpenFile(req.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return 0, err
		}
		logFile, out = f, f
	}

	// Not bound to ctx: the agent outlives the request.
	cmd := exec.Command(p.Shell, "-c", req.Command)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	size := p.Size
	ptmx, err := pty.StartWithSize(cmd, &size)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return 0, err
	}

	go func() {
		io.Copy(out, ptmx)
		ptmx.Close()
		cmd.Wait()
		if logFile != nil {
			logFile.Close()
		}
	}()
	return cmd.Process.Pid, nil
}
