// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "~/.typeindex/cache", cfg.Cache.Dir)
	assert.True(t, cfg.Cache.SyncWrites)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GCInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Build.Workers)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "typeindex.yaml")
	content := `
platform_version: "8.3.24"
project_root: /work/erp
cache:
  dir: /var/cache/typeindex
  sync_writes: false
  gc_interval: 10m
build:
  workers: 8
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8.3.24", cfg.PlatformVersion)
	assert.Equal(t, "/work/erp", cfg.ProjectRoot)
	assert.Equal(t, "/var/cache/typeindex", cfg.Cache.Dir)
	assert.False(t, cfg.Cache.SyncWrites)
	assert.Equal(t, 10*time.Minute, cfg.Cache.GCInterval)
	assert.Equal(t, 8, cfg.Build.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache: ["), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("negative worker count", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("build:\n  workers: -1\n"), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TYPEINDEX_PLATFORM_VERSION", "8.3.25")
	t.Setenv("TYPEINDEX_CACHE_DIR", "/tmp/tix")
	t.Setenv("TYPEINDEX_BUILD_WORKERS", "4")
	t.Setenv("TYPEINDEX_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8.3.25", cfg.PlatformVersion)
	assert.Equal(t, "/tmp/tix", cfg.Cache.Dir)
	assert.Equal(t, 4, cfg.Build.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "typeindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platform_version: \"8.3.24\"\n"), 0600))
	t.Setenv("TYPEINDEX_PLATFORM_VERSION", "8.3.26")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8.3.26", cfg.PlatformVersion)
}
