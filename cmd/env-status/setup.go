// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/confighub/env-status/internal/appdir"
	"github.com/confighub/env-status/internal/clierr"
	"github.com/confighub/env-status/internal/colorpolicy"
	"github.com/confighub/env-status/internal/credentials"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the config file and cache an access token",
	Long: `Set up env-status for your account.

This command writes the default color config (if there is none yet) and,
with --token, caches your TeamCity access token so later runs need no
argument.

Examples:
  env-status setup                    # Create config.yaml if missing
  env-status setup --token <token>    # Also cache the token
  env-status setup --force            # Reset config.yaml to the defaults`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd.OutOrStdout(), appdir.Dir(), setupToken, setupForce)
	},
}

var (
	setupToken string
	setupForce bool
)

func init() {
	setupCmd.Flags().StringVar(&setupToken, "token", "", "Access token to cache in the config directory")
	setupCmd.Flags().BoolVar(&setupForce, "force", false, "Overwrite an existing config.yaml with the defaults")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(out io.Writer, dir, token string, force bool) error {
	configPath := appdir.ConfigPath(dir)

	if force {
		if err := colorpolicy.WriteDefault(configPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Reset %s to defaults\n", configPath)
	} else {
		created, err := colorpolicy.EnsureDefault(configPath)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(out, "✓ Created %s\n", configPath)
		} else {
			fmt.Fprintf(out, "✓ Config already present at %s\n", configPath)
		}
	}

	// Validate whatever is on disk now so a broken edit is reported here
	// rather than silently ignored on the next run.
	if _, err := colorpolicy.Load(configPath); err != nil {
		fmt.Fprintf(out, "! %v\n  The default colors will be used until it is fixed (or run setup --force).\n", err)
	}

	if token != "" {
		tokenPath := appdir.TokenPath(dir)
		if err := credentials.Save(tokenPath, token); err != nil {
			return clierr.WrapWithHint(fmt.Errorf("failed to cache token: %w", err),
				"Check that "+dir+" is writable, or set "+appdir.EnvConfigDir+" to another directory")
		}
		fmt.Fprintf(out, "✓ Cached access token in %s\n", tokenPath)
	}

	fmt.Fprintln(out, "\nShell completion:")
	fmt.Fprintln(out, "  source <(env-status completion bash)")
	return nil
}
