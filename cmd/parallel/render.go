// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/gitflow"
	"github.com/wingedpig/parallel/internal/issues"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/service"
	"github.com/wingedpig/parallel/internal/session"
)

func section(w io.Writer, title string) {
	fmt.Fprintln(w, logging.Title(title))
}

func renderBranches(w io.Writer, branches []gitflow.Branch, current string) {
	if len(branches) == 0 {
		fmt.Fprintln(w, "  "+logging.Dim("no session branches"))
		return
	}
	width := 0
	for _, b := range branches {
		width = max(width, len(b.Name))
	}
	for _, b := range branches {
		marker := " "
		if b.Name == current {
			marker = "*"
		}
		where := ""
		switch {
		case b.IsLocal && !b.IsRemote:
			where = logging.Dim(" (local)")
		case b.IsRemote && !b.IsLocal:
			where = logging.Dim(" (remote)")
		}
		fmt.Fprintf(w, "%s %-*s  %s  %s%s\n", marker, width, b.Name,
			logging.AheadBehind(b.Ahead, b.Behind),
			logging.Dim(strings.TrimSpace(b.LastCommitTime+" "+b.LastCommit)), where)
	}
}

func renderSessions(w io.Writer, sessions []session.ManagedSession, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "  "+logging.Dim("no managed sessions"))
		return
	}
	for _, s := range sessions {
		icon := logging.Dot(s.Status == session.StatusRunning)
		var tags []string
		if s.WorktreePath != "" {
			tags = append(tags, "worktree")
		}
		if n := issues.FromTask(s.Task); n > 0 {
			tags = append(tags, fmt.Sprintf("#%d", n))
		}
		tag := ""
		if len(tags) > 0 {
			tag = logging.Dim("["+strings.Join(tags, " ")+"] ")
		}
		minutes := int(now.Sub(s.StartTime).Round(time.Minute) / time.Minute)
		fmt.Fprintf(w, "  %s %s%s on %s %s %s\n", icon, tag, s.Name, s.Branch,
			logging.Dim(fmt.Sprintf("[%dm]", minutes)), logging.Dim(fmt.Sprintf("pid %d", s.PID)))
	}
}

func renderDetected(w io.Writer, found []session.DetectedSession) {
	if len(found) == 0 {
		fmt.Fprintln(w, "  "+logging.Dim("no agent processes found"))
		return
	}
	for _, s := range found {
		tty := s.TTY
		if tty == "" {
			tty = "-"
		}
		fmt.Fprintf(w, "  %7d  %-10s %-24s %-12s %s\n", s.PID, tty, s.Branch, s.Project, logging.Orphan(s.IsOrphaned))
	}
}

func renderApp(w io.Writer, configured bool, kind string, info service.StatusInfo, logPath string) {
	if !configured {
		fmt.Fprintln(w, "  "+logging.Dim("no app configured"))
		return
	}
	line := fmt.Sprintf("  %s %s", logging.Status(info.Status.String()), logging.Dim("("+kind+")"))
	if info.Message != "" {
		line += " " + info.Message
	}
	fmt.Fprintln(w, line)
	if info.Status == service.StatusError && logPath != "" {
		fmt.Fprintln(w, "  "+logging.Dim("log: "+logPath))
	}
}

// renderStatus prints the dashboard shown above the main menu.
func renderStatus(ctx context.Context, w io.Writer, a *app.App) {
	pc := a.Project()
	eng := a.Engine()

	fmt.Fprintf(w, "\n%s %s\n\n", logging.Title("parallel"), logging.Dim(pc.Name+" · "+pc.Path))

	current, err := eng.CurrentBranch(ctx)
	if err != nil {
		current = "unknown"
	}
	section(w, "Current branch")
	fmt.Fprintln(w, "  "+current)
	fmt.Fprintln(w)

	section(w, "Session branches")
	branches, err := eng.Branches(ctx)
	if err != nil {
		logger.Warn("could not list branches", "err", err)
	}
	renderBranches(w, branches, current)
	fmt.Fprintln(w)

	section(w, "Sessions")
	renderSessions(w, a.Sessions().List(), time.Now())
	fmt.Fprintln(w)

	sup := a.Supervisor()
	section(w, "App")
	renderApp(w, sup.Configured(), sup.Kind().String(), sup.Status(), sup.Log().Path())
	fmt.Fprintln(w)
}
