// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/prompt"
	"github.com/wingedpig/parallel/internal/session"
)

const appLogPreview = 50

// mainOptions lists the main menu entries. App entries only appear when
// the project has an app.
func mainOptions(sessions int, hasApp bool) []prompt.Option {
	label := "Manage sessions"
	if sessions > 0 {
		label = fmt.Sprintf("Manage sessions (%d running)", sessions)
	}
	opts := []prompt.Option{
		{Label: "Manage branches", Value: "branches"},
		{Label: label, Value: "sessions"},
		{Label: "Pull changes", Value: "pull"},
	}
	if hasApp {
		opts = append(opts,
			prompt.Option{Label: "Start app", Value: "start"},
			prompt.Option{Label: "View app logs", Value: "logs"},
			prompt.Option{Label: "Stop app", Value: "stop"},
		)
	}
	return append(opts,
		prompt.Option{Label: "Refresh", Value: "refresh"},
		prompt.Option{Label: "Quit", Value: "quit"},
	)
}

// runMenu is the interactive loop. A failed action is reported and the
// loop continues; only quitting or a broken terminal ends it.
func runMenu(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	for {
		renderStatus(ctx, out, a)

		running := 0
		for _, s := range a.Sessions().List() {
			if s.Status == session.StatusRunning {
				running++
			}
		}
		choice, err := a.Prompter().Select(ctx, "What would you like to do?", mainOptions(running, a.Supervisor().Configured()))
		switch {
		case errors.Is(err, prompt.ErrAborted), ctx.Err() != nil:
			choice = "quit"
		case err != nil:
			a.Close()
			return err
		}

		if choice == "quit" {
			err := a.Quit(context.WithoutCancel(ctx))
			fmt.Fprintln(out, "Goodbye!")
			return err
		}
		runAction(ctx, out, a, choice)
	}
}

func runAction(ctx context.Context, w io.Writer, a *app.App, choice string) {
	sup := a.Supervisor()
	switch choice {
	case "branches":
		report("branch action", branchMenu(ctx, a))
	case "sessions":
		report("session action", sessionMenu(ctx, a))
	case "pull":
		report("pull", pull(ctx, w, a))
	case "start":
		logger.Info("starting app", "log", sup.Log().Path())
		report("app start", sup.Start(ctx))
	case "logs":
		lines, err := sup.Log().Tail(appLogPreview)
		if err != nil {
			report("read app log", err)
			return
		}
		if len(lines) == 0 {
			fmt.Fprintln(w, "app log is empty")
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	case "stop":
		report("app stop", sup.Stop(ctx))
	}
}
