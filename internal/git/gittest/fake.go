// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gittest provides a scripted git.Runner for tests.
package gittest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/wingedpig/parallel/internal/git"
)

// Response is what a scripted command returns.
type Response struct {
	Out string
	Err error
	// Do runs before the response is returned, e.g. to touch files.
	Do func()
}

// Call is one recorded invocation.
type Call struct {
	Dir  string
	Args string
}

// Fake matches each invocation against registered command prefixes. The
// longest matching prefix wins; unmatched commands succeed with no output.
type Fake struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []Call
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{responses: make(map[string][]Response)}
}

// On registers a response for commands starting with prefix. Several
// responses for one prefix are consumed in order; the last one repeats.
func (f *Fake) On(prefix string, out string, err error) *Fake {
	return f.OnDo(prefix, Response{Out: out, Err: err})
}

// OnDo registers a full response.
func (f *Fake) OnDo(prefix string, r Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = append(f.responses[prefix], r)
	return f
}

// Fail registers a failing command with git-style output.
func (f *Fake) Fail(prefix, output string) *Fake {
	return f.On(prefix, "", &git.CommandError{Args: strings.Fields(prefix), Output: output, Err: errors.New("exit status 1")})
}

func (f *Fake) Run(ctx context.Context, dir string, args ...string) (string, error) {
	return f.respond(dir, args)
}

func (f *Fake) RunAttached(ctx context.Context, dir string, args ...string) error {
	_, err := f.respond(dir, args)
	return err
}

func (f *Fake) respond(dir string, args []string) (string, error) {
	line := strings.Join(args, " ")

	f.mu.Lock()
	f.calls = append(f.calls, Call{Dir: dir, Args: line})
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	var r Response
	if q := f.responses[best]; best != "" && len(q) > 0 {
		r = q[0]
		if len(q) > 1 {
			f.responses[best] = q[1:]
		}
	}
	f.mu.Unlock()

	if r.Do != nil {
		r.Do()
	}
	return r.Out, r.Err
}

// Calls returns every invocation as "args" strings.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Args
	}
	return out
}

// CallsIn returns the directories each invocation ran in.
func (f *Fake) CallsIn() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Called reports whether any invocation starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// Index returns the position of the first call starting with prefix, or -1.
func (f *Fake) Index(prefix string) int {
	for i, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}
