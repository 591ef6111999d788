// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package kvstore provides the synchronous, string-valued key-value primitive
that persists record metadata.

Backends:

  - memory: process-local map, used in tests and ephemeral runs.
  - sqlite: single-file database via modernc.org/sqlite (no cgo).
  - postgres: shared database via pgx.

Every backend stores one row per key in the kv_entry table (or its in-memory
equivalent). Values are opaque strings; callers decide the encoding.
*/
package kvstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/taibuivan/manhwaty/internal/platform/config"
)

//go:embed migrations
var migrationFiles embed.FS

// Store is the key-value contract shared by all backends.
type Store interface {
	// Get returns the value stored under key. The boolean is false when the key is absent.
	Get(context context.Context, key string) (string, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(context context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(context context.Context, key string) error

	// Ping reports whether the backend is reachable.
	Ping(context context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Open builds the backend selected by cfg.KVBackend and applies its migrations.
func Open(context context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.KVBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendSQLite:
		return OpenSQLite(context, cfg.SQLitePath, logger)
	case config.BackendPostgres:
		return OpenPostgres(context, cfg.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", cfg.KVBackend)
	}
}

// migrationsFor returns the embedded migration set of one dialect.
func migrationsFor(dialect string) (fs.FS, error) {
	return fs.Sub(migrationFiles, "migrations/"+dialect)
}
