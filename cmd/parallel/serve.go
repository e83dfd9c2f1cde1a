// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/api"
	"github.com/wingedpig/parallel/internal/app"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API until interrupted",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
		cfg := a.Config().API
		if serveListen != "" {
			cfg.Listen = serveListen
		}
		l := logger.WithPrefix("api")
		router := api.NewRouter(api.Dependencies{
			Sessions: a.Sessions(),
			Detector: a.Detector(),
			Branches: a.Engine(),
			App:      a.Supervisor(),
			Bus:      a.Bus(),
			Logger:   l,
			Version:  version,
		})
		srv, err := api.NewServer(cfg, router, l)
		if err != nil {
			return err
		}
		return srv.Serve(cmd.Context())
	}),
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: api.listen from the config)")
	rootCmd.AddCommand(serveCmd)
}
