// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/escriptlabs/typeindex/builder"
	"github.com/escriptlabs/typeindex/cache"
	"github.com/escriptlabs/typeindex/entity"
	"github.com/escriptlabs/typeindex/index"
)

// readRecords parses an NDJSON record file: one entity record per line,
// blank lines skipped. Undecodable lines fail the read; record-level
// problems are the builder's to report as warnings.
func readRecords(path string) ([]entity.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file %s: %w", path, err)
	}
	defer f.Close()

	var records []entity.Record
	scanner := bufio.NewScanner(f)
	// Platform documentation lines can be large (full member sets).
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec entity.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: decode record: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read record file %s: %w", path, err)
	}
	return records, nil
}

// openStore opens the cache store from the resolved configuration.
func openStore() (*cache.Store, error) {
	storeCfg := cache.DefaultConfig(cfg.Cache.Dir)
	storeCfg.InMemory = cfg.Cache.InMemory
	storeCfg.SyncWrites = cfg.Cache.SyncWrites
	storeCfg.GCInterval = cfg.Cache.GCInterval
	storeCfg.Logger = logger.Slog()
	return cache.Open(storeCfg)
}

// loadIndex rebuilds the index from cached record snapshots. Query commands
// use it; they require a prior successful build for the configured platform
// version and project root.
func loadIndex(ctx context.Context) (*index.UnifiedIndex, error) {
	if cfg.PlatformVersion == "" {
		return nil, errors.New("platform version is not set (flag, config file or TYPEINDEX_PLATFORM_VERSION)")
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	platform, err := store.LoadPlatform(ctx, cfg.PlatformVersion)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("no cached platform records for version %s; run 'typeindex build' first", cfg.PlatformVersion)
	}
	if err != nil {
		return nil, err
	}

	var configuration []entity.Record
	if cfg.ProjectRoot != "" {
		identity := cache.ProjectIdentity(cfg.ProjectRoot)
		configuration, err = store.LoadProject(ctx, identity, cfg.PlatformVersion)
		if errors.Is(err, cache.ErrMiss) {
			logger.Warn("no cached project records, querying platform types only",
				"project_root", cfg.ProjectRoot,
				"platform_version", cfg.PlatformVersion)
			configuration = nil
		} else if err != nil {
			return nil, err
		}
	}

	b := builder.New(
		builder.WithWorkerCount(cfg.Build.Workers),
		builder.WithLogger(logger.Slog()),
	)
	idx, warnings, err := b.Build(ctx, builder.Input{
		PlatformVersion: cfg.PlatformVersion,
		Platform:        platform,
		Configuration:   configuration,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("build warning", "warning", w.String())
	}
	return idx, nil
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// suggest prints "did you mean" candidates for an unknown name.
func suggest(idx *index.UnifiedIndex, name string) {
	candidates := idx.SuggestSimilarNames(name, 5)
	if len(candidates) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "Did you mean:")
	for _, c := range candidates {
		fmt.Fprintf(os.Stderr, "  %s\n", c)
	}
}
