// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logging provides the operator console logger and status styles.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// LevelEnv selects the console log level.
const LevelEnv = "LOG_LEVEL"

// New creates the root console logger writing to w. The level comes from
// LOG_LEVEL (debug, info, warn, error) and defaults to info.
func New(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "parallel",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(ParseLevel(os.Getenv(LevelEnv)))
	return logger
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// ParseLevel maps a LOG_LEVEL value to a log level.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
