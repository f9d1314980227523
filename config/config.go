// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the tool configuration from a YAML file with
// environment-variable overrides.
//
// Precedence, lowest to highest: built-in defaults, the YAML file,
// TYPEINDEX_* environment variables, command-line flags (applied by the
// cmd package).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CacheConfig configures the embedded record-snapshot cache.
type CacheConfig struct {
	// Dir is the BadgerDB directory. Supports ~ expansion in the cache
	// package.
	Dir string `yaml:"dir" validate:"required_unless=InMemory true"`

	// InMemory disables disk persistence (testing).
	InMemory bool `yaml:"in_memory"`

	// SyncWrites enables synchronous writes.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is the value-log GC period. Zero disables GC.
	GCInterval time.Duration `yaml:"gc_interval"`
}

// BuildConfig configures index builds.
type BuildConfig struct {
	// Workers bounds the normalization fan-out. Zero means NumCPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON.
	JSON bool `yaml:"json"`

	// Quiet disables stderr output.
	Quiet bool `yaml:"quiet"`
}

// Config is the full tool configuration.
type Config struct {
	// PlatformVersion keys the platform cache unit and the template
	// registry generation.
	PlatformVersion string `yaml:"platform_version"`

	// ProjectRoot is the configuration-source directory; its cleaned
	// absolute path derives the project cache identity.
	ProjectRoot string `yaml:"project_root"`

	Cache CacheConfig `yaml:"cache"`
	Build BuildConfig `yaml:"build"`
	Log   LogConfig   `yaml:"log"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Dir:        "~/.typeindex/cache",
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Build: BuildConfig{Workers: 0},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads configuration from the given YAML file, applies environment
// overrides and validates the result. An empty path skips the file and
// uses defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays TYPEINDEX_* environment variables.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("TYPEINDEX_PLATFORM_VERSION"); ok {
		cfg.PlatformVersion = v
	}
	if v, ok := os.LookupEnv("TYPEINDEX_PROJECT_ROOT"); ok {
		cfg.ProjectRoot = v
	}
	if v, ok := os.LookupEnv("TYPEINDEX_CACHE_DIR"); ok {
		cfg.Cache.Dir = v
	}
	if v, ok := os.LookupEnv("TYPEINDEX_CACHE_IN_MEMORY"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.InMemory = b
		}
	}
	if v, ok := os.LookupEnv("TYPEINDEX_BUILD_WORKERS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Build.Workers = n
		}
	}
	if v, ok := os.LookupEnv("TYPEINDEX_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("TYPEINDEX_LOG_DIR"); ok {
		cfg.Log.Dir = v
	}
}
