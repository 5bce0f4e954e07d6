// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package credentials resolves the TeamCity access token for a run.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken is returned when neither the command line nor the token file
// provides a token.
var ErrNoToken = errors.New("no access token provided")

// Resolve returns cliArg verbatim when it is non-empty, otherwise the trimmed
// contents of tokenPath.
func Resolve(cliArg, tokenPath string) (string, error) {
	if cliArg != "" {
		return cliArg, nil
	}

	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrNoToken, tokenPath, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, tokenPath)
	}
	return token, nil
}

// Save caches token at tokenPath so later runs can omit it.
func Save(tokenPath, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}
	if err := os.MkdirAll(filepath.Dir(tokenPath), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
