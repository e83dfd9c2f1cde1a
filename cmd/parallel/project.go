// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/issues"
	"github.com/wingedpig/parallel/internal/logging"
)

var (
	projectWorktreeDir string
	initForce          bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the projects registry",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		w := cmd.OutOrStdout()
		current := a.Project()
		for _, pc := range a.Projects().List() {
			marker := " "
			if pc.Path == current.Path {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %-16s %s %s\n", marker, pc.Name, pc.Path, logging.Dim(config.WorktreeDirFor(pc)))
		}
		return nil
	}),
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a git repository as a project",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		pc := config.ProjectConfig{Name: args[0], Path: path, WorktreeDir: projectWorktreeDir}
		if err := a.AddProject(cmd.Context(), pc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", pc.Name, pc.Path)
		return nil
	}),
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter " + config.ConfigFileName + " for the project",
	Long: `Write a starter config at the project root. When package.json names a
known dev-server framework (next, vite, nest) an app entry for it is added.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		path, cfg, err := a.Init(initForce)
		if errors.Is(err, app.ErrConfigExists) {
			return fmt.Errorf("%w; use --force to overwrite", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		for _, ac := range cfg.Apps {
			fmt.Fprintf(cmd.OutOrStdout(), "  app %q (%s)\n", ac.Name, ac.Framework)
		}
		return nil
	}),
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List open GitHub issues a session can start from",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		list, err := issues.NewClient(a.Project().Path).List(cmd.Context())
		if err != nil {
			return err
		}
		for _, is := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "#%-5d %s %s\n", is.Number, is.Title, logging.Dim(issues.SuggestedBranch(is)))
		}
		return nil
	}),
}

func init() {
	projectAddCmd.Flags().StringVar(&projectWorktreeDir, "worktree-dir", "", "Where the project's worktrees live (default: next to the repository)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config")

	projectCmd.AddCommand(projectListCmd, projectAddCmd)
	rootCmd.AddCommand(projectCmd, initCmd, issuesCmd)
}
