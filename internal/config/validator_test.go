// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Valid(t *testing.T) {
	cfg := &Config{
		BranchPrefix: "claude/",
		Apps: []AppConfig{
			{Name: "web", Framework: "next"},
			{Name: "api", Start: "go run .", Stop: "signal:SIGINT", ReadyPattern: `listening on :\d+`},
		},
	}
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestValidator_Apps(t *testing.T) {
	cfg := &Config{
		BranchPrefix: "claude",
		Apps: []AppConfig{
			{Name: "web", Framework: "rails"},
			{Name: "web", Stop: "signal:SIGFOO"},
			{Name: "", Start: "x", ReadyPattern: "("},
		},
		API: APIConfig{TLS: "acme"},
	}

	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["branchPrefix"])
	assert.True(t, fields["apps[0].framework"])
	assert.True(t, fields["apps[1].name"])
	assert.True(t, fields["apps[1].start"])
	assert.True(t, fields["apps[1].stop"])
	assert.True(t, fields["apps[2].name"])
	assert.True(t, fields["apps[2].readyPattern"])
	assert.True(t, fields["api.tls"])
}

func TestValidator_Projects(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateProjects(&ProjectsConfig{
		Projects:       []ProjectConfig{{Name: "a", Path: "/a"}},
		DefaultProject: "a",
	}))

	err := v.ValidateProjects(&ProjectsConfig{
		Projects:       []ProjectConfig{{Name: "a", Path: "/a"}, {Name: "a"}},
		DefaultProject: "b",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate project")
	assert.Contains(t, err.Error(), "projects[1].path")
	assert.Contains(t, err.Error(), "defaultProject")
}
