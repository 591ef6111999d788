// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/taibuivan/manhwaty/internal/platform/database/schema"
	"github.com/taibuivan/manhwaty/internal/platform/migration"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// SQLiteStore is a [Store] backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates the parent directory of path, migrates the schema and
// opens the database.
func OpenSQLite(context context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("kvstore: create sqlite directory: %w", err)
		}
	}

	migrations, err := migrationsFor("sqlite")
	if err != nil {
		return nil, fmt.Errorf("kvstore: load sqlite migrations: %w", err)
	}
	if err := migration.RunUp("sqlite://"+path, migrations, logger); err != nil {
		return nil, err
	}

	// busy_timeout lets concurrent writers wait instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.Ping(context); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("kv_store_opened", slog.String("backend", "sqlite"), slog.String("path", path))
	return store, nil
}

func (store *SQLiteStore) Get(context context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`,
		schema.KVEntry.Value, schema.KVEntry.Table, schema.KVEntry.Key)

	var value string
	err := store.db.QueryRowContext(context, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: sqlite get %q: %w", key, err)
	}
	return value, true, nil
}

func (store *SQLiteStore) Set(context context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)
		ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s
	`,
		schema.KVEntry.Table, schema.KVEntry.Key, schema.KVEntry.Value, schema.KVEntry.UpdatedAt,
		schema.KVEntry.Key,
		schema.KVEntry.Value, schema.KVEntry.Value,
		schema.KVEntry.UpdatedAt, schema.KVEntry.UpdatedAt,
	)

	if _, err := store.db.ExecContext(context, query, key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("kvstore: sqlite set %q: %w", key, err)
	}
	return nil
}

func (store *SQLiteStore) Remove(context context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, schema.KVEntry.Table, schema.KVEntry.Key)
	if _, err := store.db.ExecContext(context, query, key); err != nil {
		return fmt.Errorf("kvstore: sqlite remove %q: %w", key, err)
	}
	return nil
}

func (store *SQLiteStore) Ping(context context.Context) error {
	if err := store.db.PingContext(context); err != nil {
		return fmt.Errorf("kvstore: sqlite ping failed: %w", err)
	}
	return nil
}

func (store *SQLiteStore) Close() error {
	return store.db.Close()
}
