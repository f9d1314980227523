// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache persists normalized record snapshots in embedded BadgerDB so
// a restart rebuilds the index without re-parsing source archives.
//
// Two cache units with different lifetimes:
//   - platform units, keyed by platform version alone, shared across every
//     project on the machine;
//   - project units, keyed by (project identity, platform version), so a
//     platform upgrade never serves stale project entries.
//
// The cache is an accelerator, never an authority: every failure mode —
// missing unit, version mismatch, checksum mismatch, undecodable payload —
// surfaces as ErrMiss and the caller rebuilds from source. Load never
// returns a partially decoded snapshot.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/escriptlabs/typeindex/entity"
)

// ErrMiss is the uniform cache-miss signal: not found, corrupted, or
// version-mismatched. Callers rebuild from source; they never need to
// distinguish the cause.
var ErrMiss = errors.New("cache miss")

// envelopeVersion guards the on-disk layout. Bumping it invalidates every
// existing unit, which is the intended migration path.
const envelopeVersion = 1

// Config holds configuration for a cache store.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless InMemory
	// is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives cache events. If nil, slog.Default() is used and
	// BadgerDB's internal logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	// Default: 0.5.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: synchronous writes, GC every
// five minutes at a 50% discard ratio.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration optimized for testing: no disk I/O,
// no sync, no GC.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
		GCInterval: 0,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the embedded record-snapshot cache. It implements
// builder.Persister.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// isolation.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	gcStop chan struct{}
	gcDone chan struct{}
}

// Open creates and opens a cache store with the given configuration.
//
// Opens a BadgerDB database at the configured path, or in memory if
// InMemory is true. Creates the directory if it doesn't exist. The caller
// must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
		s.gcStop = nil
	}
	return s.db.Close()
}

// runGC triggers value log garbage collection at the configured interval
// until Close.
func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err == nil {
				s.logger.Debug("cache value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				// ErrNoRewrite means no GC was needed, not an error.
				s.logger.Warn("cache value log GC error", "error", err)
			}
		}
	}
}

// envelope is the on-disk unit: an integrity-checked record snapshot.
type envelope struct {
	Version         int    `json:"version"`
	PlatformVersion string `json:"platform_version"`
	Checksum        string `json:"checksum"`
	Count           int    `json:"count"`
	SavedAt         string `json:"saved_at"`
	Payload         []byte `json:"payload"`
}

func platformKey(platformVersion string) []byte {
	return []byte("platform/" + platformVersion)
}

func projectKey(projectIdentity, platformVersion string) []byte {
	return []byte("project/" + projectIdentity + "/" + platformVersion)
}

// StorePlatform persists a platform record snapshot keyed by version alone.
func (s *Store) StorePlatform(ctx context.Context, platformVersion string, records []entity.Record) error {
	if platformVersion == "" {
		return errors.New("platform version must not be empty")
	}
	return s.put(ctx, platformKey(platformVersion), platformVersion, records)
}

// StoreProject persists a configuration record snapshot keyed by project
// identity and platform version.
func (s *Store) StoreProject(ctx context.Context, projectIdentity, platformVersion string, records []entity.Record) error {
	if projectIdentity == "" || platformVersion == "" {
		return errors.New("project identity and platform version must not be empty")
	}
	return s.put(ctx, projectKey(projectIdentity, platformVersion), platformVersion, records)
}

// LoadPlatform returns the platform record snapshot for the given version,
// or ErrMiss.
func (s *Store) LoadPlatform(ctx context.Context, platformVersion string) ([]entity.Record, error) {
	return s.get(ctx, platformKey(platformVersion), platformVersion)
}

// LoadProject returns the configuration record snapshot for the given
// project and platform version, or ErrMiss. A unit saved under a different
// platform version is never served.
func (s *Store) LoadProject(ctx context.Context, projectIdentity, platformVersion string) ([]entity.Record, error) {
	return s.get(ctx, projectKey(projectIdentity, platformVersion), platformVersion)
}

// InvalidateProject drops every cached unit of one project across all
// platform versions.
func (s *Store) InvalidateProject(ctx context.Context, projectIdentity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := []byte("project/" + projectIdentity + "/")
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan project units: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) put(ctx context.Context, key []byte, platformVersion string, records []entity.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	sum := sha256.Sum256(payload)
	env := envelope{
		Version:         envelopeVersion,
		PlatformVersion: platformVersion,
		Checksum:        hex.EncodeToString(sum[:]),
		Count:           len(records),
		SavedAt:         time.Now().UTC().Format(time.RFC3339),
		Payload:         payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("write cache unit %s: %w", key, err)
	}
	s.logger.Debug("cache unit written", "key", string(key), "records", len(records))
	return nil
}

// get loads and verifies one unit. Every failure mode after "the database
// itself is broken" collapses into ErrMiss: the caller's recovery is the
// same rebuild regardless of cause, and the cause is logged here.
func (s *Store) get(ctx context.Context, key []byte, platformVersion string) ([]entity.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache unit %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("cache unit undecodable, treating as miss", "key", string(key), "error", err)
		return nil, ErrMiss
	}
	if env.Version != envelopeVersion || env.PlatformVersion != platformVersion {
		s.logger.Warn("cache unit version mismatch, treating as miss",
			"key", string(key),
			"envelope_version", env.Version,
			"platform_version", env.PlatformVersion)
		return nil, ErrMiss
	}
	sum := sha256.Sum256(env.Payload)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		s.logger.Warn("cache unit checksum mismatch, treating as miss", "key", string(key))
		return nil, ErrMiss
	}

	var records []entity.Record
	if err := json.Unmarshal(env.Payload, &records); err != nil {
		s.logger.Warn("cache payload undecodable, treating as miss", "key", string(key), "error", err)
		return nil, ErrMiss
	}
	if len(records) != env.Count {
		s.logger.Warn("cache unit record count mismatch, treating as miss",
			"key", string(key), "expected", env.Count, "actual", len(records))
		return nil, ErrMiss
	}
	return records, nil
}
