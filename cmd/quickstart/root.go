// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/supoclip/supoclip/internal/preflight"
)

func newRootCommand() *cobra.Command {
	var envFile string
	var healthURL string
	var healthTimeout time.Duration
	var checkOnly bool

	rootCmd := &cobra.Command{
		Use:           "quickstart",
		Short:         "Validate the environment and start the SupoClip stack",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := preflight.Options{
				EnvFile:       envFile,
				HealthURL:     healthURL,
				HealthTimeout: healthTimeout,
			}
			if checkOnly {
				// A no-op runner for compose up turns the run into a dry
				// validation of credentials and tooling.
				results, ok := preflight.NewChecker(opts).RunChecksOnly(ctx)
				renderResults(cmd.OutOrStdout(), results)
				if !ok {
					return errors.New("preflight checks failed")
				}
				return nil
			}

			results, ok := preflight.NewChecker(opts).Run(ctx)
			renderResults(cmd.OutOrStdout(), results)
			if !ok {
				return errors.New("preflight failed, stack was not started")
			}
			return nil
		},
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Settings file to load")
	rootCmd.Flags().StringVar(&healthURL, "health-url", "http://localhost:8000/api/v1/health/ready", "Readiness endpoint to poll after startup")
	rootCmd.Flags().DurationVar(&healthTimeout, "health-timeout", 2*time.Minute, "How long to wait for the stack to become ready")
	rootCmd.Flags().BoolVar(&checkOnly, "check", false, "Run validation checks without starting the stack")

	return rootCmd
}
