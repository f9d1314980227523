// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/escriptlabs/typeindex/builder"
	"github.com/escriptlabs/typeindex/cache"
)

var (
	buildPlatformFile    string
	buildMetadataFile    string
	buildPlatformVersion string
	buildProjectRoot     string
	buildNoCache         bool
	buildShowWarnings    bool
)

// buildCmd composes the index from the two record streams and persists the
// snapshots to the cache.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the unified index from record streams",
	Long: `Build the unified index from the platform documentation stream and
the configuration metadata stream, then persist both snapshots so query
commands and future sessions skip the source parse.

Input files are NDJSON: one entity record per line. Malformed records are
skipped with warnings; a build only fails on unreadable input or
cancellation.

Examples:
  typeindex build --platform platform_8.3.24.ndjson --platform-version 8.3.24
  typeindex build --platform platform.ndjson --metadata project.ndjson \
      --platform-version 8.3.24 --project-root ./src
  typeindex build --platform platform.ndjson --platform-version 8.3.24 --warnings`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildPlatformFile, "platform", "", "platform documentation NDJSON file (required)")
	buildCmd.Flags().StringVar(&buildMetadataFile, "metadata", "", "configuration metadata NDJSON file")
	buildCmd.Flags().StringVar(&buildPlatformVersion, "platform-version", "", "platform version the documentation describes")
	buildCmd.Flags().StringVar(&buildProjectRoot, "project-root", "", "project source root (keys the project cache unit)")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "skip cache persistence")
	buildCmd.Flags().BoolVar(&buildShowWarnings, "warnings", false, "print every build warning")
	buildCmd.MarkFlagRequired("platform")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildPlatformVersion != "" {
		cfg.PlatformVersion = buildPlatformVersion
	}
	if buildProjectRoot != "" {
		cfg.ProjectRoot = buildProjectRoot
	}
	if cfg.PlatformVersion == "" {
		return fmt.Errorf("platform version is required (--platform-version)")
	}

	platform, err := readRecords(buildPlatformFile)
	if err != nil {
		return err
	}
	input := builder.Input{
		PlatformVersion: cfg.PlatformVersion,
		Platform:        platform,
	}
	if buildMetadataFile != "" {
		input.Configuration, err = readRecords(buildMetadataFile)
		if err != nil {
			return err
		}
	}
	if cfg.ProjectRoot != "" {
		input.ProjectIdentity = cache.ProjectIdentity(cfg.ProjectRoot)
	}

	opts := []builder.Option{
		builder.WithWorkerCount(cfg.Build.Workers),
		builder.WithLogger(logger.Slog()),
	}
	if !buildNoCache {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, builder.WithPersister(store))
	}

	idx, warnings, err := builder.New(opts...).Build(cmd.Context(), input)
	if err != nil {
		return err
	}

	stats := idx.Stats()
	if flagJSON {
		return printJSON(map[string]any{
			"stats":    stats,
			"warnings": len(warnings),
		})
	}
	fmt.Printf("Built index for platform %s\n", stats.PlatformVersion)
	fmt.Printf("  entities:      %d (platform %d, configuration %d, global %d)\n",
		stats.TotalEntities, stats.PlatformEntities, stats.ConfigEntities, stats.GlobalElements)
	fmt.Printf("  templates:     %d\n", stats.Templates)
	fmt.Printf("  warnings:      %d\n", len(warnings))
	if buildShowWarnings {
		for _, w := range warnings {
			fmt.Printf("  %s\n", w)
		}
	}
	return nil
}
