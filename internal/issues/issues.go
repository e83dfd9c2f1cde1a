// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package issues turns GitHub issues into session tasks through the gh CLI.
package issues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoCLI means gh is not installed.
var ErrNoCLI = errors.New("gh CLI not found")

const (
	listLimit = 20
	maxSlug   = 40
)

// Issue is an open GitHub issue.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`
}

// Runner executes a command in dir and returns stdout.
type Runner func(ctx context.Context, dir, name string, args ...string) (string, error)

// Client queries issues of the repository in Dir.
type Client struct {
	Dir     string
	Run     Runner
	Timeout time.Duration
}

// NewClient creates a client for the repository at dir.
func NewClient(dir string) *Client {
	return &Client{Dir: dir, Run: runGH, Timeout: 30 * time.Second}
}

// Available reports whether gh is on PATH.
func Available() bool {
	_, err := exec.LookPath("gh")
	return err == nil
}

// List returns up to 20 open issues.
func (c *Client) List(ctx context.Context) ([]Issue, error) {
	out, err := c.gh(ctx, "issue", "list", "--state", "open", "--limit", strconv.Itoa(listLimit), "--json", "number,title")
	if err != nil {
		return nil, err
	}
	var list []Issue
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, fmt.Errorf("parse gh issue list: %w", err)
	}
	return list, nil
}

// View returns one issue with its body.
func (c *Client) View(ctx context.Context, number int) (Issue, error) {
	out, err := c.gh(ctx, "issue", "view", strconv.Itoa(number), "--json", "title,body")
	if err != nil {
		return Issue{}, err
	}
	is := Issue{Number: number}
	if err := json.Unmarshal([]byte(out), &is); err != nil {
		return Issue{}, fmt.Errorf("parse gh issue view: %w", err)
	}
	is.Number = number
	return is, nil
}

func (c *Client) gh(ctx context.Context, args ...string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Run(ctx, c.Dir, "gh", args...)
}

func runGH(ctx context.Context, dir, name string, args ...string) (string, error) {
	if _, err := exec.LookPath(name); err != nil {
		return "", ErrNoCLI
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("gh %s: %s", strings.Join(args[:2], " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// TaskText is the agent task for an issue.
func TaskText(is Issue) string {
	return fmt.Sprintf("GitHub Issue #%d: %s\n\n%s", is.Number, is.Title, is.Body)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// BranchSlug derives a branch name fragment from an issue title:
// lowercase, runs of other characters collapsed to "-", at most 40 chars.
func BranchSlug(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlug {
		s = strings.TrimRight(s[:maxSlug], "-")
	}
	return s
}

// SuggestedBranch is the default branch name (without prefix) offered
// for an issue.
func SuggestedBranch(is Issue) string {
	if slug := BranchSlug(is.Title); slug != "" {
		return slug
	}
	return fmt.Sprintf("issue-%d", is.Number)
}

var taskIssue = regexp.MustCompile(`GitHub Issue #(\d+)`)

// FromTask returns the issue number a task was created from, or 0.
func FromTask(task string) int {
	m := taskIssue.FindStringSubmatch(task)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
