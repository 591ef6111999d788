// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/manhwaty/internal/platform/database/schema"
	"github.com/taibuivan/manhwaty/internal/platform/migration"
	"github.com/taibuivan/manhwaty/internal/platform/postgres"
)

// PostgresStore is a [Store] backed by the kv_entry table of a PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

// OpenPostgres migrates the schema and connects a pool to databaseURL.
func OpenPostgres(context context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	migrations, err := migrationsFor("postgres")
	if err != nil {
		return nil, fmt.Errorf("kvstore: load postgres migrations: %w", err)
	}
	if err := migration.RunUp(databaseURL, migrations, logger); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(context, databaseURL, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("kv_store_opened", slog.String("backend", "postgres"))
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (store *PostgresStore) Get(context context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.KVEntry.Value, schema.KVEntry.Table, schema.KVEntry.Key)

	var value string
	err := store.db.QueryRow(context, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: postgres get %q: %w", key, err)
	}
	return value, true, nil
}

func (store *PostgresStore) Set(context context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, now())
		ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = now()
	`,
		schema.KVEntry.Table, schema.KVEntry.Key, schema.KVEntry.Value, schema.KVEntry.UpdatedAt,
		schema.KVEntry.Key,
		schema.KVEntry.Value, schema.KVEntry.Value,
		schema.KVEntry.UpdatedAt,
	)

	if _, err := store.db.Exec(context, query, key, value); err != nil {
		return fmt.Errorf("kvstore: postgres set %q: %w", key, err)
	}
	return nil
}

func (store *PostgresStore) Remove(context context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.KVEntry.Table, schema.KVEntry.Key)
	if _, err := store.db.Exec(context, query, key); err != nil {
		return fmt.Errorf("kvstore: postgres remove %q: %w", key, err)
	}
	return nil
}

func (store *PostgresStore) Ping(context context.Context) error {
	return postgres.Ping(context, store.db)
}

func (store *PostgresStore) Close() error {
	store.db.Close()
	return nil
}
