// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// NewLauncher returns the platform launcher: AppleScript-driven iTerm or
// Terminal, then tmux, then a detached pty.
func NewLauncher(logger *log.Logger) Launcher {
	return &Chain{
		Launchers: []Launcher{NewAppleScriptLauncher(), NewTmuxLauncher(), NewPTYLauncher()},
		Logger:    logger,
	}
}

// AppleScriptLauncher opens the agent in iTerm (new tab, then new window)
// when running under iTerm, otherwise in Terminal.
type AppleScriptLauncher struct {
	Program string
	Run     func(ctx context.Context, script string) error
}

// NewAppleScriptLauncher detects the hosting terminal from $TERM_PROGRAM.
func NewAppleScriptLauncher() *AppleScriptLauncher {
	return &AppleScriptLauncher{Program: os.Getenv("TERM_PROGRAM"), Run: runOsascript}
}

func (a *AppleScriptLauncher) Name() string { return "osascript" }

func (a *AppleScriptLauncher) Launch(ctx context.Context, req LaunchRequest) (int, error) {
	line := appleScriptString("cd " + ShellQuote(req.Dir) + " && " + req.Command)

	var scripts []string
	if a.Program == "iTerm.app" {
		scripts = append(scripts,
			fmt.Sprintf(iTermTab, line),
			fmt.Sprintf(iTermWindow, line),
			fmt.Sprintf(terminalNew, line))
	} else {
		scripts = append(scripts, fmt.Sprintf(terminalFront, line), fmt.Sprintf(terminalNew, line))
	}

	var err error
	for _, s := range scripts {
		if err = a.Run(ctx, s); err == nil {
			return 0, nil
		}
	}
	return 0, err
}

const (
	iTermTab = `tell application "iTerm"
  tell current window
    create tab with default profile
    tell current session
      write text "%s"
    end tell
  end tell
end tell`

	iTermWindow = `tell application "iTerm"
  activate
  create window with default profile
  tell current session of current window
    write text "%s"
  end tell
end tell`

	terminalFront = `tell application "Terminal" to do script "%s" in front window`
	terminalNew   = `tell application "Terminal" to do script "%s"`
)

func appleScriptString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func runOsascript(ctx context.Context, script string) error {
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
