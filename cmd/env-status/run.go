// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/confighub/env-status/internal/appdir"
	"github.com/confighub/env-status/internal/clierr"
	"github.com/confighub/env-status/internal/colorpolicy"
	"github.com/confighub/env-status/internal/credentials"
	"github.com/confighub/env-status/internal/logger"
	"github.com/confighub/env-status/internal/progress"
	"github.com/confighub/env-status/internal/report"
	"github.com/confighub/env-status/internal/statussvc"
	"github.com/confighub/env-status/pkg/teamcity"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

// runOptions holds the root command's flags.
type runOptions struct {
	server    string
	envs      []string
	buildType string
	timeout   time.Duration
	output    string
	noSpinner bool
	logDir    string
	logLevel  string
}

// RunContext is everything a run needs once credentials and colors are
// resolved. It is built once and not modified afterwards.
type RunContext struct {
	Token        string
	Policy       colorpolicy.Policy
	Environments []string
}

func runStatus(ctx context.Context, stdout, stderr io.Writer, tokenArg string, opts runOptions) error {
	log := logger.New(stderr, opts.logLevel)
	dir := appdir.Dir()

	token, err := credentials.Resolve(tokenArg, appdir.TokenPath(dir))
	if err != nil {
		printTokenHelp(stderr, log, err)
		return &clierr.ExitError{Code: clierr.ExitNoToken, Err: err}
	}

	// Keep stdout clean for machine-readable output.
	progressOut := stdout
	if opts.output != "" && opts.output != report.FormatTable {
		progressOut = stderr
	}
	notice := lipgloss.NewRenderer(progressOut)

	out := lipgloss.NewRenderer(stdout)
	rc := &RunContext{
		Token:        token,
		Policy:       loadPolicy(progressOut, notice, dir, log).WithRenderer(out),
		Environments: opts.envs,
	}

	runLog, err := NewRunLogger(opts.logDir, "status")
	if err != nil {
		log.Warn("Run log disabled", "error", err)
	}
	runLog.Log("Server: %s", opts.server)
	runLog.Log("Environments: %v", rc.Environments)

	fmt.Fprintln(progressOut, notice.NewStyle().Foreground(lipgloss.Color("2")).
		Render(fmt.Sprintf("Fetching data about %d environments...", len(rc.Environments))))

	client := teamcity.New(opts.server, rc.Token, teamcity.WithTimeout(opts.timeout))
	fetcher := statussvc.NewFetcher(client, opts.buildType)

	start := time.Now()
	statuses, interrupted := fetchAll(ctx, progressOut, fetcher, rc, opts.noSpinner, log)
	log.Debug("Fetch finished", "duration", formatDuration(time.Since(start)))
	for _, s := range statuses {
		if s.Failed() {
			log.Debug("Environment failed", "env", s.Environment, "detail", clierr.Pretty(s.Err))
		}
	}

	runLog.LogStatuses(statuses)
	runLog.LogResult(statuses, time.Since(start))
	if path := runLog.Close(); path != "" {
		log.Info("Run log written", "path", path)
	}

	if err := report.Write(stdout, opts.output, statuses, rc.Policy); err != nil {
		return err
	}

	if interrupted {
		return &clierr.ExitError{Code: exitInterrupted, Err: progress.ErrInterrupted}
	}
	return nil
}

// fetchAll runs the fetcher under a spinner when progressOut is a terminal,
// and with plain progress lines otherwise. The result always has one entry
// per environment.
func fetchAll(ctx context.Context, progressOut io.Writer, f *statussvc.Fetcher, rc *RunContext, noSpinner bool, log *slog.Logger) ([]statussvc.DeploymentStatus, bool) {
	if noSpinner || !isTerminal(progressOut) {
		statuses := f.FetchAll(ctx, rc.Environments, progress.Lines(progressOut))
		return statuses, ctx.Err() != nil
	}

	var statuses []statussvc.DeploymentStatus
	err := progress.Run(ctx, func(ctx context.Context, obs statussvc.Observer) {
		statuses = f.FetchAll(ctx, rc.Environments, obs)
	}, tea.WithOutput(progressOut))

	if errors.Is(err, progress.ErrInterrupted) {
		return statuses, true
	}
	if err != nil {
		log.Warn("Progress display failed", "error", err)
	}
	return statuses, ctx.Err() != nil
}

// loadPolicy makes sure a config file exists for the user to edit, then
// loads it. Neither step can fail the run.
func loadPolicy(w io.Writer, r *lipgloss.Renderer, dir string, log *slog.Logger) colorpolicy.Policy {
	path := appdir.ConfigPath(dir)

	created, err := colorpolicy.EnsureDefault(path)
	if err != nil {
		log.Warn("Could not create default color config", "path", path, "error", err)
	}
	if created {
		fmt.Fprintln(w, r.NewStyle().Foreground(lipgloss.Color("3")).
			Render("Now you can adjust output colors in config file: ")+path)
	}

	return colorpolicy.LoadOrDefault(path, log)
}

func printTokenHelp(stderr io.Writer, log *slog.Logger, err error) {
	log.Error("Please provide your token to access TeamCity!")
	fmt.Fprintf(stderr, "See: %s\n", teamcity.TokenHelpURL())
	fmt.Fprintf(stderr, "Example: env-status AMGuaGHuTGlua593.UMAtMTY2MA==.hkjh123123JJLKjl\n")
	fmt.Fprintf(stderr, "Or cache it once: env-status setup --token <token>\n")
	log.Error("Failed to read token from file .token", "error", err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
