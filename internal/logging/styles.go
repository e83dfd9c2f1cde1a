// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Status renders an app status word in its color.
func Status(s string) string {
	switch s {
	case "running":
		return okStyle.Render(s)
	case "starting":
		return warnStyle.Render(s)
	case "error":
		return errStyle.Render(s)
	default:
		return dimStyle.Render(s)
	}
}

// Orphan renders the orphan marker for a detected session.
func Orphan(orphaned bool) string {
	if orphaned {
		return warnStyle.Render("orphaned")
	}
	return okStyle.Render("attached")
}

// AheadBehind renders "+a -b" relative to main.
func AheadBehind(ahead, behind int) string {
	a := dimStyle.Render("+0")
	if ahead > 0 {
		a = okStyle.Render(fmt.Sprintf("+%d", ahead))
	}
	b := dimStyle.Render("-0")
	if behind > 0 {
		b = warnStyle.Render(fmt.Sprintf("-%d", behind))
	}
	return a + " " + b
}

// Title renders a section heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Dim renders secondary text.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// Dot renders a filled marker for live items and a hollow one otherwise.
func Dot(live bool) string {
	if live {
		return okStyle.Render("●")
	}
	return dimStyle.Render("○")
}
