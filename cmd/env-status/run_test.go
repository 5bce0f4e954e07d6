// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/confighub/env-status/internal/appdir"
	"github.com/confighub/env-status/internal/clierr"
	"github.com/confighub/env-status/internal/report"
)

// buildServer answers for environment A with build 42 and lets
// environment B's first lookup hang until the client gives up.
func buildServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		locator := r.URL.Query().Get("locator")
		switch {
		case strings.HasPrefix(locator, "buildType:Deploy_A,"):
			w.Write([]byte(`{"count":1,"build":[{"id":42}]}`))
		case strings.HasPrefix(locator, "buildType:Deploy_B,"):
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		case r.URL.Path == "/app/rest/builds/id:42":
			w.Write([]byte(`{"id":42,"finishDate":"2024-01-02T03:04:05Z","status":"SUCCESS","state":"finished","branchName":"main","triggered":{"user":{"name":"alice"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testOptions(server string) runOptions {
	return runOptions{
		server:    server,
		envs:      []string{"A", "B"},
		buildType: "Deploy_%s",
		timeout:   100 * time.Millisecond,
		output:    report.FormatTable,
		noSpinner: true,
		logLevel:  "info",
	}
}

// tableLines returns the header, separator and rows of the report.
func tableLines(t *testing.T, stdout string) []string {
	t.Helper()
	idx := strings.Index(stdout, " Env:")
	require.GreaterOrEqual(t, idx, 0, "no table in output:\n%s", stdout)
	return strings.Split(strings.TrimRight(stdout[idx:], "\n"), "\n")
}

func TestRunStatusScenario(t *testing.T) {
	t.Setenv(appdir.EnvConfigDir, t.TempDir())
	srv, _ := buildServer(t)

	var stdout, stderr bytes.Buffer
	err := runStatus(context.Background(), &stdout, &stderr, "tok", testOptions(srv.URL))
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Fetching data about 2 environments...")
	assert.Contains(t, out, "(1/2) Fetching data about A")
	assert.Contains(t, out, "(2/2) Fetching data about B")
	assert.Contains(t, out, "✖ Failed to fetch B data")

	lines := tableLines(t, out)
	require.Len(t, lines, 4)
	assert.Equal(t, "[A    ]  alice                2024-01-02 03:04:05  finished        main", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "[B    ]  FAILED: "), lines[3])
}

func TestRunStatusCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(appdir.EnvConfigDir, dir)
	srv, _ := buildServer(t)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "tok", testOptions(srv.URL)))

	assert.Contains(t, stdout.String(), "Now you can adjust output colors in config file: "+appdir.ConfigPath(dir))
	_, err := os.Stat(appdir.ConfigPath(dir))
	assert.NoError(t, err)

	// Second run finds the file and stays quiet about it.
	stdout.Reset()
	require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "tok", testOptions(srv.URL)))
	assert.NotContains(t, stdout.String(), "Now you can adjust")
}

func TestRunStatusNoTokenIsFatal(t *testing.T) {
	t.Setenv(appdir.EnvConfigDir, t.TempDir())
	srv, hits := buildServer(t)

	var stdout, stderr bytes.Buffer
	err := runStatus(context.Background(), &stdout, &stderr, "", testOptions(srv.URL))

	require.Error(t, err)
	assert.Equal(t, clierr.ExitNoToken, clierr.ExitCode(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits), "no request may be made without a token")
	assert.Contains(t, stderr.String(), "Please provide your token to access TeamCity!")
	assert.Contains(t, stderr.String(), "Example: env-status")
	assert.NotContains(t, stdout.String(), " Env:")
}

func TestRunStatusUsesCachedToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(appdir.EnvConfigDir, dir)
	require.NoError(t, os.WriteFile(appdir.TokenPath(dir), []byte("cached\n"), 0600))

	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "", testOptions(srv.URL)))

	assert.Equal(t, "Bearer cached", gotAuth.Load())
	lines := tableLines(t, stdout.String())
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "FAILED: access denied")
	assert.Contains(t, lines[3], "FAILED: access denied")
}

func TestRunStatusMalformedConfigMatchesDefault(t *testing.T) {
	srv, _ := buildServer(t)

	run := func(t *testing.T, config string) ([]string, string) {
		dir := t.TempDir()
		t.Setenv(appdir.EnvConfigDir, dir)
		if config != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0644))
		}
		var stdout, stderr bytes.Buffer
		require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "tok", testOptions(srv.URL)))
		return tableLines(t, stdout.String()), stderr.String()
	}

	want, _ := run(t, "")
	got, warnings := run(t, "module.exports = { makeColorMap: (chalk) => ({}) };\n")

	// Failure text carries timing details, so compare row prefixes.
	require.Len(t, got, len(want))
	assert.Equal(t, want[:3], got[:3])
	assert.True(t, strings.HasPrefix(got[3], "[B    ]  FAILED: "))
	assert.Contains(t, warnings, "Failed to load color map from config file, using default one")
}

func TestRunStatusJSONOutput(t *testing.T) {
	t.Setenv(appdir.EnvConfigDir, t.TempDir())
	srv, _ := buildServer(t)

	opts := testOptions(srv.URL)
	opts.output = report.FormatJSON

	var stdout, stderr bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "tok", opts))

	var rows []report.Row
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rows), "stdout must hold only JSON:\n%s", stdout.String())
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].DeployedBy)
	assert.NotEmpty(t, rows[1].Error)
	assert.Contains(t, stderr.String(), "Fetching data about 2 environments...")
	assert.Contains(t, stderr.String(), "Now you can adjust output colors in config file: ")
}

func TestRunStatusYAMLOutputFirstRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(appdir.EnvConfigDir, dir)
	srv, _ := buildServer(t)

	opts := testOptions(srv.URL)
	opts.output = report.FormatYAML

	var stdout, stderr bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "tok", opts))

	assert.NotContains(t, stdout.String(), "Now you can adjust")
	assert.NotContains(t, stdout.String(), "Fetching data")
	assert.Contains(t, stderr.String(), "Now you can adjust output colors in config file: "+appdir.ConfigPath(dir))

	var rows []report.Row
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &rows), "stdout must hold only YAML:\n%s", stdout.String())
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Environment)
	assert.Equal(t, "main", rows[0].Branch)
	assert.Equal(t, "B", rows[1].Environment)
	assert.NotEmpty(t, rows[1].Error)
}

func TestRunStatusCancelled(t *testing.T) {
	t.Setenv(appdir.EnvConfigDir, t.TempDir())
	srv, _ := buildServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := runStatus(ctx, &stdout, &stderr, "tok", testOptions(srv.URL))

	require.Error(t, err)
	assert.Equal(t, exitInterrupted, clierr.ExitCode(err))
	assert.Len(t, tableLines(t, stdout.String()), 4, "the table is still printed")
}

func TestRunStatusWritesRunLog(t *testing.T) {
	t.Setenv(appdir.EnvConfigDir, t.TempDir())
	srv, _ := buildServer(t)

	opts := testOptions(srv.URL)
	opts.logDir = t.TempDir()

	var stdout, stderr bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &stdout, &stderr, "tok", opts))

	matches, err := filepath.Glob(filepath.Join(opts.logDir, "status-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "A build=42 by=alice")
	assert.Contains(t, string(content), "B FAILED:")
	assert.Contains(t, string(content), "Failed: 1")
}
