// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePackageJSON(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(content), 0644))
	return root
}

func TestDetectFramework(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"next", `{"dependencies": {"next": "14.1.0", "react": "18"}}`, "next"},
		{"nest", `{"dependencies": {"@nestjs/core": "10"}}`, "nest"},
		{"vite dev dep", `{"devDependencies": {"vite": "5"}}`, "vite"},
		{"next wins over vite", `{"dependencies": {"next": "14"}, "devDependencies": {"vite": "5"}}`, "next"},
		{"none", `{"dependencies": {"express": "4"}}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectFramework(writePackageJSON(t, tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectFramework_NoPackageJSON(t *testing.T) {
	got, err := DetectFramework(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScaffold(t *testing.T) {
	cfg, err := Scaffold(writePackageJSON(t, `{"dependencies": {"next": "14"}}`))
	require.NoError(t, err)
	require.Len(t, cfg.Apps, 1)
	assert.Equal(t, "next", cfg.Apps[0].Framework)
	assert.Equal(t, DefaultBranchPrefix, cfg.BranchPrefix)
	assert.NoError(t, NewValidator().Validate(cfg))
}
