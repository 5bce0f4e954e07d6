// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Command env-status shows the latest deployment of each environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/confighub/env-status/internal/clierr"
	"github.com/confighub/env-status/internal/report"
	"github.com/confighub/env-status/pkg/teamcity"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

// defaultEnvironments are queried, in this order, unless --env is given.
var defaultEnvironments = []string{"Dev2", "Dev3", "Dev4", "Audt"}

var rootOpts runOptions

var rootCmd = &cobra.Command{
	Use:   "env-status [token]",
	Short: "Show the latest deployment of each environment",
	Long: `env-status - latest deployment per environment at a glance

env-status asks TeamCity for the newest one-click deployment build of each
environment and prints who deployed it, when it finished, its state and
its branch. Environments that cannot be resolved are marked as failed; the
table is printed regardless.

The access token is taken from the first argument, or from the .token file
in the config directory (see env-status setup).

Files:
  ~/.config/env-status/.token        cached access token
  ~/.config/env-status/config.yaml   environment colors

Environment Variables:
  ENV_STATUS_SERVER       TeamCity server URL (default: ` + teamcity.DefaultBaseURL + `)
  ENV_STATUS_CONFIG_DIR   Config directory (default: ~/.config/env-status)
  LOG_FORMAT              Set to json for JSON log output
  NO_COLOR                Disable colors
`,
	Example: `  env-status
  env-status AMGuaGHuTGlua593.UMAtMTY2MA==.hkjh123123JJLKjl
  env-status --env Dev2 --env Dev3 --output json`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var tokenArg string
		if len(args) == 1 {
			tokenArg = args[0]
		}
		return runStatus(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), tokenArg, rootOpts)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var exitErr *clierr.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(clierr.ExitCode(err))
	}
}

func init() {
	server := os.Getenv("ENV_STATUS_SERVER")
	if server == "" {
		server = teamcity.DefaultBaseURL
	}

	flags := rootCmd.Flags()
	flags.StringVar(&rootOpts.server, "server", server, "TeamCity server URL")
	flags.StringSliceVar(&rootOpts.envs, "env", defaultEnvironments, "Environments to query, in display order")
	flags.StringVar(&rootOpts.buildType, "build-type", teamcity.DefaultBuildTypeTemplate, "Build configuration id template; %s is replaced by the environment")
	flags.DurationVar(&rootOpts.timeout, "timeout", teamcity.DefaultTimeout, "Timeout for each request")
	flags.StringVarP(&rootOpts.output, "output", "o", report.FormatTable, "Output format: table, json, yaml")
	flags.BoolVar(&rootOpts.noSpinner, "no-spinner", false, "Print plain progress lines instead of a spinner")
	flags.StringVar(&rootOpts.logDir, "log-dir", "", "Write a diagnostic log for this run into the given directory")
	flags.StringVar(&rootOpts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return filterPrefix([]string{report.FormatTable, report.FormatJSON, report.FormatYAML}, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("env", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return filterPrefix(defaultEnvironments, toComplete), cobra.ShellCompDirectiveNoFileComp
	})

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "env-status version %s (built %s)\n", BuildTag, BuildDate)
		},
	})

	// Add completion command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for env-status.

Bash:
  $ source <(env-status completion bash)

Zsh:
  $ env-status completion zsh > "${fpath[1]}/_env-status"

Fish:
  $ env-status completion fish > ~/.config/fish/completions/env-status.fish

PowerShell:
  PS> env-status completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	})
}

// filterPrefix returns the values starting with prefix.
func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
