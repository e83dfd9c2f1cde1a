// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/service"
)

var (
	logsFollow bool
	logsLines  int
)

const stopTimeout = 15 * time.Second

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Run the app under test",
}

var appStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the app, wait until it is ready and stream its log until interrupted",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		if err := a.Supervisor().Start(cmd.Context()); err != nil {
			return err
		}
		return followApp(cmd.Context(), cmd.OutOrStdout(), a)
	}),
}

var appStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the app",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		return a.Supervisor().Stop(cmd.Context())
	}),
}

var appStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the app is running",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		sup := a.Supervisor()
		running := sup.IsRunning(cmd.Context())
		info := sup.Status()
		if running && info.Status != service.StatusRunning {
			info.Message = "processes found from an earlier run"
		}
		renderApp(cmd.OutOrStdout(), sup.Configured(), sup.Kind().String(), info, sup.Log().Path())
		return nil
	}),
}

var appLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the app log",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		w := cmd.OutOrStdout()
		appLog := a.Supervisor().Log()
		lines, err := appLog.Tail(logsLines)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		if !logsFollow {
			return nil
		}
		follow, err := appLog.Follow(cmd.Context(), false)
		if err != nil {
			return err
		}
		for line := range follow {
			fmt.Fprintln(w, line)
		}
		return nil
	}),
}

func init() {
	appLogsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep printing new lines")
	appLogsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")

	appCmd.AddCommand(appStartCmd, appStopCmd, appStatusCmd, appLogsCmd)
	rootCmd.AddCommand(appCmd)
}

// followApp streams the app log until ctx is done, then stops the app.
func followApp(ctx context.Context, w io.Writer, a *app.App) error {
	sup := a.Supervisor()
	lines, err := sup.Log().Follow(ctx, true)
	if err != nil {
		return err
	}
	logger.Info("app is running, press Ctrl-C to stop it", "log", sup.Log().Path())
	for line := range lines {
		fmt.Fprintln(w, line)
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	logger.Info("stopping app")
	return sup.Stop(stopCtx)
}
