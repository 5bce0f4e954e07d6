// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, ".token")
	emptyPath := filepath.Join(dir, ".empty")
	require.NoError(t, os.WriteFile(tokenPath, []byte("  file-token\n"), 0600))
	require.NoError(t, os.WriteFile(emptyPath, []byte(" \n\t"), 0600))

	tests := []struct {
		name    string
		cliArg  string
		path    string
		want    string
		wantErr bool
	}{
		{
			name:   "cli argument wins",
			cliArg: "AMGuaGHuTGlua593.UMAtMTY2MA==",
			path:   tokenPath,
			want:   "AMGuaGHuTGlua593.UMAtMTY2MA==",
		},
		{
			name:   "cli argument is not validated",
			cliArg: " not a token ",
			path:   filepath.Join(dir, "missing"),
			want:   " not a token ",
		},
		{
			name: "falls back to trimmed file",
			path: tokenPath,
			want: "file-token",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing"),
			wantErr: true,
		},
		{
			name:    "blank file",
			path:    emptyPath,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.cliArg, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoToken), "expected ErrNoToken, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMissingFileKeepsCause(t *testing.T) {
	_, err := Resolve("", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSaveRoundTrip(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "nested", ".token")

	require.NoError(t, Save(tokenPath, " secret\n"))

	info, err := os.Stat(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Resolve("", tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestSaveRejectsBlank(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), ".token"), "   ")
	assert.ErrorIs(t, err, ErrNoToken)
}
