// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package appdir locates the per-user files env-status reads and writes.
package appdir

import (
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the default config directory.
const EnvConfigDir = "ENV_STATUS_CONFIG_DIR"

const (
	tokenFile  = ".token"
	configFile = "config.yaml"
)

// Dir returns the config directory: $ENV_STATUS_CONFIG_DIR when set,
// otherwise ~/.config/env-status.
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "env-status")
}

// TokenPath returns the cached access token file inside dir.
func TokenPath(dir string) string {
	return filepath.Join(dir, tokenFile)
}

// ConfigPath returns the color config file inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, configFile)
}
