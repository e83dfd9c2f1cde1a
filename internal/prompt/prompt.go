// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package prompt asks the operator questions. The interactive menu and the
// git workflows depend on the Prompter interface; the terminal
// implementation uses huh forms.
package prompt

import (
	"context"
	"errors"

	huh "charm.land/huh/v2"
)

// ErrAborted is returned when the operator backs out of a prompt.
var ErrAborted = errors.New("prompt aborted")

// Option is one choice in a select.
type Option struct {
	Label string
	Value string
}

// Prompter asks questions and returns answers.
type Prompter interface {
	// Confirm asks a yes/no question. Aborting answers def.
	Confirm(ctx context.Context, question string, def bool) bool
	Select(ctx context.Context, title string, options []Option) (string, error)
	MultiSelect(ctx context.Context, title string, options []Option) ([]string, error)
	Input(ctx context.Context, title, placeholder string) (string, error)
}

// Terminal prompts on the controlling terminal.
type Terminal struct {
	Accessible bool
}

// NewTerminal creates a terminal prompter.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithAccessible(t.Accessible)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

func (t *Terminal) Confirm(ctx context.Context, question string, def bool) bool {
	answer := def
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)
	if err := t.run(ctx, field); err != nil {
		return def
	}
	return answer
}

func (t *Terminal) Select(ctx context.Context, title string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", ErrAborted
	}
	var choice string
	field := huh.NewSelect[string]().
		Title(title).
		Options(huhOptions(options)...).
		Value(&choice)
	if err := t.run(ctx, field); err != nil {
		return "", err
	}
	return choice, nil
}

func (t *Terminal) MultiSelect(ctx context.Context, title string, options []Option) ([]string, error) {
	var chosen []string
	field := huh.NewMultiSelect[string]().
		Title(title).
		Options(huhOptions(options)...).
		Value(&chosen)
	if err := t.run(ctx, field); err != nil {
		return nil, err
	}
	return chosen, nil
}

func (t *Terminal) Input(ctx context.Context, title, placeholder string) (string, error) {
	var value string
	field := huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(&value)
	if err := t.run(ctx, field); err != nil {
		return "", err
	}
	return value, nil
}

func huhOptions(options []Option) []huh.Option[string] {
	out := make([]huh.Option[string], len(options))
	for i, o := range options {
		out[i] = huh.NewOption(o.Label, o.Value)
	}
	return out
}

// Always answers every confirmation with a fixed value and refuses the
// other prompts. Non-interactive commands use it with --yes.
type Always bool

func (a Always) Confirm(context.Context, string, bool) bool { return bool(a) }

func (a Always) Select(context.Context, string, []Option) (string, error) {
	return "", ErrAborted
}

func (a Always) MultiSelect(context.Context, string, []Option) ([]string, error) {
	return nil, ErrAborted
}

func (a Always) Input(context.Context, string, string) (string, error) {
	return "", ErrAborted
}
