// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shelf

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/taibuivan/manhwaty/internal/platform/kvstore"
)

// Repository persists the ordered record collection.
type Repository interface {
	// Load returns the stored collection, or an empty one when nothing is stored.
	Load(context context.Context) ([]Record, error)

	// Save replaces the stored collection.
	Save(context context.Context, records []Record) error

	// Clear removes the stored collection.
	Clear(context context.Context) error
}

// KVRepository stores the whole collection as one JSON document under a single key.
type KVRepository struct {
	kv     kvstore.Store
	key    string
	logger *slog.Logger
}

// NewKVRepository constructs a [KVRepository].
func NewKVRepository(kv kvstore.Store, key string, logger *slog.Logger) *KVRepository {
	return &KVRepository{kv: kv, key: key, logger: logger}
}

// Load implements [Repository]. A document that cannot be parsed is logged and
// treated as an empty collection.
func (repository *KVRepository) Load(context context.Context) ([]Record, error) {
	raw, ok, err := repository.kv.Get(context, repository.key)
	if err != nil {
		return nil, fmt.Errorf("shelf: load records: %w", err)
	}
	if !ok || raw == "" {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		repository.logger.Warn("records_document_corrupt",
			slog.String("key", repository.key),
			slog.Any("error", err),
		)
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Save implements [Repository].
func (repository *KVRepository) Save(context context.Context, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("shelf: encode records: %w", err)
	}
	if err := repository.kv.Set(context, repository.key, string(payload)); err != nil {
		return fmt.Errorf("shelf: save records: %w", err)
	}
	return nil
}

// Clear implements [Repository].
func (repository *KVRepository) Clear(context context.Context) error {
	if err := repository.kv.Remove(context, repository.key); err != nil {
		return fmt.Errorf("shelf: clear records: %w", err)
	}
	return nil
}
