// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr provides error classification and user-friendly error formatting for the CLI.
// It helps distinguish between different error types and provides actionable hints.
package clierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/confighub/env-status/pkg/teamcity"
)

// Common error types for CLI output.
const (
	TypeUnauthorized = "unauthorized" // Token rejected
	TypeNotFound     = "not_found"    // Build configuration or build not found
	TypeTimeout      = "timeout"      // Request exceeded its deadline
	TypeNetwork      = "network"      // Connection/network errors
	TypeMalformed    = "malformed"    // Unexpected response shape
	TypeInternal     = "internal"     // Internal/unexpected errors
)

// ExitNoToken is the exit code used when no access token can be resolved.
const ExitNoToken = 255

// ExitError carries a process exit code up to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the code main should exit with for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func statusCode(err error) int {
	var apiErr *teamcity.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized checks if the server rejected the token.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	code := statusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsNotFound checks if the error indicates a missing build configuration or build.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return statusCode(err) == http.StatusNotFound || errors.Is(err, teamcity.ErrNoBuilds)
}

// IsTimeout checks if a request ran past its deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "client.timeout exceeded")
}

// IsNetworkError checks if the error is a connection/network error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp")
}

// ClassifyError determines the type of error for appropriate handling.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case IsUnauthorized(err):
		return TypeUnauthorized
	case IsNotFound(err):
		return TypeNotFound
	case IsTimeout(err):
		return TypeTimeout
	case IsNetworkError(err):
		return TypeNetwork
	case errors.Is(err, teamcity.ErrMalformedResponse):
		return TypeMalformed
	default:
		return TypeInternal
	}
}

// Short returns a one-line label for err, suitable for a table cell.
func Short(err error) string {
	if err == nil {
		return ""
	}
	switch ClassifyError(err) {
	case TypeUnauthorized:
		return "access denied: " + err.Error()
	case TypeTimeout:
		return "timed out: " + err.Error()
	case TypeNetwork:
		return "connection error: " + err.Error()
	default:
		return err.Error()
	}
}

// Pretty formats an error with a user-friendly message and actionable hints.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	baseMsg := err.Error()

	switch ClassifyError(err) {
	case TypeUnauthorized:
		return fmt.Sprintf("Access denied: %s\n\nHint: Check your access token:\n"+
			"  - Tokens are created under My Settings & Tools > Access Tokens\n"+
			"  - Run env-status setup --token <token> to replace the cached one", baseMsg)

	case TypeNotFound:
		return fmt.Sprintf("Not found: %s\n\nHint: Check the build configuration:\n"+
			"  - --build-type must expand to an existing build configuration id\n"+
			"  - The configuration may not have run yet", baseMsg)

	case TypeTimeout:
		return fmt.Sprintf("Timed out: %s\n\nHint: The build server did not answer in time:\n"+
			"  - Check VPN access to the build server\n"+
			"  - Raise --timeout for slow links", baseMsg)

	case TypeNetwork:
		return fmt.Sprintf("Connection error: %s\n\nHint: Check your connectivity:\n"+
			"  - Verify the --server URL\n"+
			"  - Check VPN access to the build server", baseMsg)

	default:
		return fmt.Sprintf("Error: %s", baseMsg)
	}
}

// WrapWithHint wraps an error with an additional hint message.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}
