// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command typeindex builds and queries the unified type index from the
// platform documentation and configuration metadata record streams.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/escriptlabs/typeindex/config"
	"github.com/escriptlabs/typeindex/pkg/logging"
)

var (
	// Persistent flags
	flagConfigFile string
	flagLogLevel   string
	flagJSON       bool

	// cfg is resolved once in the root PersistentPreRunE.
	cfg config.Config

	// logger is the root logger, shared by all commands.
	logger *logging.Logger
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "typeindex",
	Short: "Unified type index for platform and configuration types",
	Long: `typeindex merges the platform type documentation with project
configuration metadata into one queryable index.

Typical flow:
  typeindex build --platform platform.ndjson --metadata config.ndjson --platform-version 8.3.24
  typeindex query "Catalogs.Customers"
  typeindex methods "Catalogs.Customers"
  typeindex check "Catalogs.Customers" "CatalogReference"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfigFile)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.Log.Level = flagLogLevel
		}
		logger, err = logging.New(logging.Config{
			Level:   logging.ParseLevel(cfg.Log.Level),
			LogDir:  cfg.Log.Dir,
			Service: "cli",
			JSON:    cfg.Log.JSON,
			Quiet:   cfg.Log.Quiet,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
