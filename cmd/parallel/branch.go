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
	"github.com/wingedpig/parallel/internal/prompt"
	"github.com/wingedpig/parallel/internal/session"
)

var promoteLatest bool

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List session branches with ahead/behind counts",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		ctx := cmd.Context()
		branches, err := a.Engine().Branches(ctx)
		if err != nil {
			return err
		}
		current, _ := a.Engine().CurrentBranch(ctx)
		renderBranches(cmd.OutOrStdout(), branches, current)
		return nil
	}),
}

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Land, test and clean up session branches",
}

// branchAction builds a subcommand that takes one branch argument. The
// branch prefix is added when the argument lacks it.
func branchAction(use, short string, fn func(ctx context.Context, w io.Writer, a *app.App, branch string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <branch>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			return fn(cmd.Context(), cmd.OutOrStdout(), a, a.Engine().BranchName(args[0]))
		}),
	}
}

var branchPromoteCmd = branchAction("promote", "Cherry-pick a branch's commits onto main for local testing",
	func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
		sel := gitflow.SelectAll
		if promoteLatest {
			sel = gitflow.SelectLatest
		}
		res, err := a.Engine().CherryPick(ctx, branch, sel)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "promoted %d commit(s) from %s; undo with: git reset --hard HEAD~%d\n", len(res.Commits), branch, len(res.Commits))
		return nil
	})

var branchAbortPickCmd = &cobra.Command{
	Use:   "abort-pick",
	Short: "Abort a cherry-pick left in progress by promote",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		if err := a.Engine().AbortCherryPick(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cherry-pick aborted, %s restored\n", a.Config().MainBranch)
		return nil
	}),
}

func init() {
	branchPromoteCmd.Flags().BoolVar(&promoteLatest, "latest", false, "Only the newest commit")

	branchCmd.AddCommand(
		branchAction("rebase", "Rebase a branch onto main", func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
			if err := a.Engine().Rebase(ctx, branch); err != nil {
				return err
			}
			fmt.Fprintf(w, "rebased %s onto %s\n", branch, a.Config().MainBranch)
			return nil
		}),
		branchAction("merge", "Fast-forward main to a branch", func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
			if err := a.Engine().Merge(ctx, branch); err != nil {
				return err
			}
			fmt.Fprintf(w, "merged %s into %s\n", branch, a.Config().MainBranch)
			return nil
		}),
		branchAction("approve", "Rebase, merge and delete a branch, then offer to push main", func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
			res := a.Engine().Approve(ctx, branch)
			printApprove(w, res)
			return res.Err
		}),
		branchAction("delete", "Delete a branch, its worktree and its remote copy", func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
			res, err := a.Engine().Delete(ctx, branch)
			printDelete(w, branch, res)
			return err
		}),
		branchAction("switch", "Check a branch out in the main checkout", func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
			return a.Engine().Checkout(ctx, branch)
		}),
		branchAction("test", "Check a branch out in the main checkout and restart the app", func(ctx context.Context, w io.Writer, a *app.App, branch string) error {
			if err := a.TestBranch(ctx, branch); err != nil {
				return err
			}
			if a.Supervisor().Configured() {
				return followApp(ctx, w, a)
			}
			return nil
		}),
		branchPromoteCmd,
		branchAbortPickCmd,
	)
	rootCmd.AddCommand(branchesCmd, branchCmd)
}

func printApprove(w io.Writer, res gitflow.ApproveResult) {
	steps := make([]string, len(res.Completed))
	for i, s := range res.Completed {
		steps[i] = s.String()
	}
	switch res.Final {
	case gitflow.ApproveDone:
		fmt.Fprintf(w, "approved %s (%s)\n", res.Branch, strings.Join(steps, ", "))
		if res.DeleteErr != nil {
			fmt.Fprintf(w, "cleanup incomplete: %v\n", res.DeleteErr)
		}
		if res.Pushed {
			fmt.Fprintln(w, "pushed main")
		}
	case gitflow.ApproveCancelled:
		fmt.Fprintf(w, "approve of %s cancelled\n", res.Branch)
	default:
		fmt.Fprintf(w, "approve of %s stopped at %s\n", res.Branch, res.FailedAt)
	}
}

func printDelete(w io.Writer, branch string, res gitflow.DeleteResult) {
	var parts []string
	if res.WorktreeRemoved {
		parts = append(parts, "worktree")
	}
	if res.LocalDeleted {
		parts = append(parts, "local branch")
	}
	if res.RemoteDeleted {
		parts = append(parts, "remote branch")
	}
	if len(parts) == 0 {
		fmt.Fprintf(w, "nothing deleted for %s\n", branch)
		return
	}
	fmt.Fprintf(w, "deleted %s of %s\n", strings.Join(parts, ", "), branch)
}

// Interactive flows used by the menu.

func branchMenu(ctx context.Context, a *app.App) error {
	p := a.Prompter()
	branches, err := a.Engine().Branches(ctx)
	if err != nil {
		return err
	}
	opts := make([]prompt.Option, 0, len(branches)+3)
	if a.Engine().CherryPickInProgress(ctx) {
		opts = append(opts, prompt.Option{Label: "Abort in-progress cherry-pick", Value: optAbortPick})
	}
	for _, b := range branches {
		opts = append(opts, prompt.Option{
			Label: fmt.Sprintf("%s  +%d -%d  %s", b.Name, b.Ahead, b.Behind, b.LastCommitTime),
			Value: b.Name,
		})
	}
	opts = append(opts,
		prompt.Option{Label: "Create new branch", Value: optCreate},
		prompt.Option{Label: "Back", Value: optBack},
	)
	branch, err := p.Select(ctx, "Select a branch", opts)
	if err != nil || branch == optBack {
		return err
	}
	switch branch {
	case optCreate:
		return newBranchSession(ctx, a)
	case optAbortPick:
		return a.Engine().AbortCherryPick(ctx)
	}

	action, err := p.Select(ctx, branch, []prompt.Option{
		{Label: "Switch to this branch", Value: "switch"},
		{Label: "Start app to test", Value: "test"},
		{Label: "Rebase onto " + a.Config().MainBranch, Value: "rebase"},
		{Label: "Approve (rebase + merge + delete)", Value: "approve"},
		{Label: "Cherry-pick onto " + a.Config().MainBranch + " for testing", Value: "promote"},
		{Label: "Delete branch", Value: "delete"},
		{Label: "Back", Value: optBack},
	})
	if err != nil {
		return err
	}
	eng := a.Engine()
	out := rootCmd.OutOrStdout()
	switch action {
	case "switch":
		return eng.Checkout(ctx, branch)
	case "test":
		return a.TestBranch(ctx, branch)
	case "rebase":
		return eng.Rebase(ctx, branch)
	case "approve":
		res := eng.Approve(ctx, branch)
		printApprove(out, res)
		return res.Err
	case "promote":
		return promoteFlow(ctx, a, branch)
	case "delete":
		res, err := eng.Delete(ctx, branch)
		printDelete(out, branch, res)
		return err
	}
	return nil
}

func newBranchSession(ctx context.Context, a *app.App) error {
	name, err := a.Prompter().Input(ctx, "New branch name", a.Config().BranchPrefix+"my-feature")
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return nil
	}
	s, err := a.StartSession(ctx, session.SpawnRequest{Branch: name, CreateBranch: true})
	if err != nil {
		return err
	}
	logger.Info("session started", "name", s.Name, "branch", s.Branch, "dir", s.Dir)
	return nil
}

// promoteFlow cherry-picks branch onto main after asking which commits.
func promoteFlow(ctx context.Context, a *app.App, branch string) error {
	if branch == "" || branch == a.Config().MainBranch {
		return fmt.Errorf("%w: the session runs on %s, there is nothing to pull", gitflow.ErrPrecondition, a.Config().MainBranch)
	}
	choice, err := a.Prompter().Select(ctx, "Promote commits from "+branch, []prompt.Option{
		{Label: "Cherry-pick all commits to " + a.Config().MainBranch, Value: gitflow.SelectAll.String()},
		{Label: "Cherry-pick latest commit only", Value: gitflow.SelectLatest.String()},
	})
	if err != nil {
		return err
	}
	sel := gitflow.SelectAll
	if choice == gitflow.SelectLatest.String() {
		sel = gitflow.SelectLatest
	}
	_, err = a.Engine().CherryPick(ctx, branch, sel)
	return err
}
