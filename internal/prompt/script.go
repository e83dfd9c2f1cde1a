// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package prompt

import (
	"context"
	"strings"
	"sync"
)

// Script is a Prompter that replays canned answers. Confirmations match by
// question substring; selects and inputs are consumed in order.
type Script struct {
	mu       sync.Mutex
	Confirms map[string]bool
	Selects  []string
	Multis   [][]string
	Inputs   []string
	Asked    []string
}

func (s *Script) Confirm(ctx context.Context, question string, def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, question)
	for k, v := range s.Confirms {
		if strings.Contains(question, k) {
			return v
		}
	}
	return def
}

func (s *Script) Select(ctx context.Context, title string, options []Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, title)
	if len(s.Selects) == 0 {
		return "", ErrAborted
	}
	v := s.Selects[0]
	s.Selects = s.Selects[1:]
	return v, nil
}

func (s *Script) MultiSelect(ctx context.Context, title string, options []Option) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, title)
	if len(s.Multis) == 0 {
		return nil, ErrAborted
	}
	v := s.Multis[0]
	s.Multis = s.Multis[1:]
	return v, nil
}

func (s *Script) Input(ctx context.Context, title, placeholder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, title)
	if len(s.Inputs) == 0 {
		return "", ErrAborted
	}
	v := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	return v, nil
}
