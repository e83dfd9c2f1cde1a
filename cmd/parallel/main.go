// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/logging"
	"github.com/wingedpig/parallel/internal/prompt"
	"github.com/wingedpig/parallel/internal/service"
)

var version = "dev"

var (
	projectFlag    string
	assumeYes      bool
	accessibleMode bool
)

var rootCmd = &cobra.Command{
	Use:   "parallel",
	Short: "Run coding-agent sessions side by side in isolated git worktrees",
	Long: `Parallel launches coding-agent sessions in their own terminal windows,
each on its own branch and worktree, supervises the app under test, and lands
finished branches onto main.

Run without a subcommand for the interactive menu.`,
	RunE:          runMenu,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project to operate on (default: the registry's default project)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")
	rootCmd.PersistentFlags().BoolVar(&accessibleMode, "accessible", os.Getenv("ACCESSIBLE") != "", "Use line-based prompts instead of interactive forms")
}

var logger = logging.New(os.Stderr)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.Version = version
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, app.ErrNotRepo) {
			logger.Error("Not a git repository. Run parallel inside a git work tree.")
		} else {
			logger.Error(err)
		}
		os.Exit(1)
	}
}

func newPrompter() prompt.Prompter {
	if assumeYes {
		return prompt.Always(true)
	}
	return &prompt.Terminal{Accessible: accessibleMode}
}

// openApp builds the orchestrator for the working directory and switches
// to --project when given.
func openApp(cmd *cobra.Command) (*app.App, error) {
	ctx := cmd.Context()
	a, err := app.New(ctx, app.Options{
		Prompter: newPrompter(),
		Logger:   logger,
		Version:  version,
	})
	if err != nil {
		return nil, err
	}
	if projectFlag != "" {
		if err := a.SelectProject(ctx, projectFlag); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// withApp runs fn against a fresh orchestrator and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// report logs a failed menu action. The menu loop continues after it.
func report(action string, err error) {
	if err == nil || errors.Is(err, prompt.ErrAborted) || errors.Is(err, context.Canceled) || errors.Is(err, service.ErrStopped) {
		return
	}
	logger.Error(action+" failed", "err", err)
}
