// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/wingedpig/parallel/internal/config"
)

const (
	taskFileName = "task.txt"
	logFileName  = "session.log"
)

// WriteTaskFile stores task in a fresh temporary directory so it can be
// piped to the agent without shell escaping. It returns the directory and
// the file path; the file path is empty when task is empty.
func WriteTaskFile(tempRoot, task string) (dir, file string, err error) {
	dir, err = os.MkdirTemp(tempRoot, "parallel-task-*")
	if err != nil {
		return "", "", fmt.Errorf("create task dir: %w", err)
	}
	if task == "" {
		return dir, "", nil
	}
	file = filepath.Join(dir, taskFileName)
	if err := os.WriteFile(file, []byte(task), 0600); err != nil {
		return dir, "", fmt.Errorf("write task file: %w", err)
	}
	return dir, file, nil
}

// AgentCommand builds the shell line that runs the agent for this
// platform.
func AgentCommand(agent config.AgentConfig, taskFile string, headless bool) string {
	if runtime.GOOS == "windows" {
		return WindowsAgentCommand(agent, taskFile, headless)
	}
	return PosixAgentCommand(agent, taskFile, headless)
}

// PosixAgentCommand pipes the task file into the agent:
// cat '<file>' | claude [--dangerously-skip-permissions].
func PosixAgentCommand(agent config.AgentConfig, taskFile string, headless bool) string {
	cmd := agentInvocation(agent, headless)
	if taskFile == "" {
		return cmd
	}
	return "cat " + ShellQuote(taskFile) + " | " + cmd
}

// WindowsAgentCommand is the cmd.exe equivalent. Headless sessions read
// the task through redirection; interactive ones through type.
func WindowsAgentCommand(agent config.AgentConfig, taskFile string, headless bool) string {
	cmd := agentInvocation(agent, headless)
	if taskFile == "" {
		return cmd
	}
	if headless {
		return fmt.Sprintf(`%s < "%s"`, cmd, taskFile)
	}
	return fmt.Sprintf(`type "%s" | %s`, taskFile, cmd)
}

func agentInvocation(agent config.AgentConfig, headless bool) string {
	cmd := agent.Command
	if cmd == "" {
		cmd = "claude"
	}
	if headless && agent.SkipPermissionsFlag != "" {
		cmd += " " + agent.SkipPermissionsFlag
	}
	return cmd
}

// ShellQuote wraps s in single quotes for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func displayName(agent config.AgentConfig) string {
	if agent.DisplayName != "" {
		return agent.DisplayName
	}
	return "Claude"
}

func modeLabel(headless bool) string {
	if headless {
		return "headless"
	}
	return "interactive"
}
