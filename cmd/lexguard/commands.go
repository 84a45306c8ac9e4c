// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/LexGuard/cmd/lexguard/config"
	"github.com/AleutianAI/LexGuard/pkg/logging"
)

// --- Global Command Variables ---
var (
	configPath  string
	logLevel    string
	providerArg string
	modelArg    string
	mappingPath string
	chunksPath  string

	settings  config.Settings
	appLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "lexguard",
		Short: "A hallucination guardrail for IPC to BNS legal Q&A",
		Long: `lexguard answers questions about the Indian criminal-code transition
and verifies every factual claim against a statute mapping store and a
vector corpus before anything reaches the user.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if settings, err = config.Load(configPath); err != nil {
				return err
			}
			if logLevel != "" {
				settings.Logging.Level = logLevel
			}
			appLogger, err = logging.New(logging.Config{
				Level:   logging.ParseLevel(settings.Logging.Level),
				LogDir:  settings.Logging.Dir,
				Service: cmd.Name(),
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appLogger != nil {
				_ = appLogger.Close()
			}
		},
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the verified verdict",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the verification HTTP service",
		RunE:  runServe,
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Load statute mappings and corpus chunks into the stores",
		RunE:  runIngest,
	}

	redteamCmd = &cobra.Command{
		Use:   "redteam",
		Short: "Run the adversarial probe suite against the pipeline",
		RunE:  runRedteam,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ~/.lexguard/lexguard.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	askCmd.Flags().StringVar(&providerArg, "provider", "", "model provider (default from settings)")
	askCmd.Flags().StringVar(&modelArg, "model", "", "primary model (default from settings)")

	redteamCmd.Flags().StringVar(&providerArg, "provider", "", "model provider (default from settings)")
	redteamCmd.Flags().StringVar(&modelArg, "model", "", "primary model (default from settings)")

	ingestCmd.Flags().StringVar(&mappingPath, "mapping", "", "CSV of IPC to BNS section mappings")
	ingestCmd.Flags().StringVar(&chunksPath, "chunks", "", "JSON array of statute text chunks")

	rootCmd.AddCommand(askCmd, serveCmd, ingestCmd, redteamCmd)
}

// providerModel resolves the provider and model for a run, preferring
// command flags over settings.
func providerModel() (string, string) {
	provider := providerArg
	if provider == "" {
		provider = settings.Models.Provider
	}
	model := modelArg
	if model == "" {
		model = settings.Models.Model
	}
	return provider, model
}
