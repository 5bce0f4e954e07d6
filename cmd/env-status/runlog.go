// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confighub/env-status/internal/statussvc"
)

// RunLogger writes a diagnostic log of one run to a file. A nil
// *RunLogger is valid and discards everything.
type RunLogger struct {
	file      *os.File
	runID     string
	startTime time.Time
	command   string
}

// NewRunLogger creates a log file in dir. An empty dir disables logging and
// returns a nil logger.
func NewRunLogger(dir, command string) (*RunLogger, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("2006-01-02-150405")
	logPath := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.log", command, timestamp, runID[:8]))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	logger := &RunLogger{
		file:      file,
		runID:     runID,
		startTime: time.Now(),
		command:   command,
	}
	logger.writeHeader()

	return logger, nil
}

func (l *RunLogger) writeHeader() {
	l.file.WriteString(strings.Repeat("=", 80) + "\n")
	l.file.WriteString(fmt.Sprintf("env-status: %s\n", l.command))
	l.file.WriteString(fmt.Sprintf("Run: %s\n", l.runID))
	l.file.WriteString(fmt.Sprintf("Started: %s\n", l.startTime.Format(time.RFC3339)))
	l.file.WriteString(strings.Repeat("=", 80) + "\n\n")
}

// RunID returns the identifier written in the log header.
func (l *RunLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Log writes a message to the log file
func (l *RunLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	l.file.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, msg))
}

// Section writes a section header
func (l *RunLogger) Section(title string) {
	if l == nil || l.file == nil {
		return
	}
	l.file.WriteString(fmt.Sprintf("\n--- %s ---\n", title))
}

// LogStatuses writes one line per environment.
func (l *RunLogger) LogStatuses(statuses []statussvc.DeploymentStatus) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("ENVIRONMENTS")
	for _, s := range statuses {
		if s.Failed() {
			l.Log("  %s FAILED: %v", s.Environment, s.Err)
			continue
		}
		l.Log("  %s build=%d by=%s finished=%s state=%s status=%s branch=%s",
			s.Environment, s.BuildID, s.DeployedBy, statussvc.FormatFinishDate(s.FinishDate), s.State, s.Status, s.Branch)
	}
}

// LogResult writes the run summary
func (l *RunLogger) LogResult(statuses []statussvc.DeploymentStatus, elapsed time.Duration) {
	if l == nil || l.file == nil {
		return
	}
	failed := 0
	for _, s := range statuses {
		if s.Failed() {
			failed++
		}
	}
	l.Section("RESULT")
	l.Log("Resolved: %d", len(statuses)-failed)
	l.Log("Failed: %d", failed)
	l.Log("Fetch time: %s", formatDuration(elapsed))
}

// Close closes the log file and returns its path
func (l *RunLogger) Close() string {
	if l == nil || l.file == nil {
		return ""
	}

	l.file.WriteString(fmt.Sprintf("\n\nCompleted: %s\n", time.Now().Format(time.RFC3339)))
	l.file.WriteString(fmt.Sprintf("Duration: %s\n", time.Since(l.startTime).Round(time.Millisecond)))

	path := l.file.Name()
	l.file.Close()
	return path
}
