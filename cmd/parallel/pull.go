// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/gitflow"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull the main checkout, keeping local changes stashed across the pull",
	Long: `Pull the current branch of the main checkout from origin. Local changes
are stashed first and restored afterwards, even when the pull fails. Changed
dependency manifests trigger a reinstall and new migrations run the migrate
command.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		return pull(cmd.Context(), cmd.OutOrStdout(), a)
	}),
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func pull(ctx context.Context, w io.Writer, a *app.App) error {
	res, err := a.Engine().Pull(ctx)
	printPull(w, res)
	return err
}

func printPull(w io.Writer, res gitflow.PullResult) {
	if res.Branch == "" {
		return
	}
	if res.UpToDate {
		fmt.Fprintf(w, "%s is up to date\n", res.Branch)
	} else if len(res.Changed) > 0 {
		fmt.Fprintf(w, "pulled %s: %d file(s) changed\n", res.Branch, len(res.Changed))
	}
	var notes []string
	if res.Stashed {
		if res.StashRestored {
			notes = append(notes, "local changes restored")
		} else {
			notes = append(notes, "local changes left in the stash (git stash pop)")
		}
	}
	if res.Reinstalled {
		notes = append(notes, "dependencies reinstalled")
	}
	if res.Migrated {
		notes = append(notes, "migrations applied")
	}
	if res.AppRestarted {
		notes = append(notes, "app restarted")
	}
	if len(notes) > 0 {
		fmt.Fprintln(w, strings.Join(notes, "; "))
	}
}
