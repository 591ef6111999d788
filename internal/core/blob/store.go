// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package blob provides the asynchronous store for binary cover images.

Architecture:

  - Backend: key to [asset.Asset] CRUD over bbolt, redis or memory.
  - Store: the facade used by the rest of the system. The backend is opened on
    first use and memoized; a failed open surfaces as Unavailable and is retried
    on the next call.
  - Display references: short-lived signed URLs under /api/v1/assets/ that
    serve an asset without exposing its key.

Every backend keeps its entries inside one namespace (bbolt bucket or redis key
prefix) so that a full reset can drop the namespace at once.
*/
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/constants"
	"github.com/taibuivan/manhwaty/internal/platform/sec"
)

// # Backend Contract

// Backend is implemented by every physical blob storage.
type Backend interface {
	// Put upserts a under key.
	Put(context context.Context, key string, a asset.Asset) error

	// Get returns nil, nil when key is unknown.
	Get(context context.Context, key string) (*asset.Asset, error)

	// Delete is idempotent.
	Delete(context context.Context, key string) error

	// Reset drops every entry of the namespace.
	Reset(context context.Context) error

	Ping(context context.Context) error
	Close() error
}

// Opener establishes a [Backend]. It is invoked lazily by [Store].
type Opener func(context context.Context) (Backend, error)

// DisplayReference is a transient URL that serves one asset.
type DisplayReference struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// # Store Facade

// Store is the lazily initialized, shared blob store.
type Store struct {
	open   Opener
	tokens *sec.TokenService
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	backend Backend
}

// NewStore builds a [Store]. Nothing is opened until the first operation.
func NewStore(open Opener, tokens *sec.TokenService, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{open: open, tokens: tokens, ttl: ttl, logger: logger}
}

// connect returns the memoized backend, opening it when needed.
func (store *Store) connect(context context.Context) (Backend, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.backend != nil {
		return store.backend, nil
	}

	backend, err := store.open(context)
	if err != nil {
		store.logger.Error("blob_store_open_failed", slog.Any("error", err))
		return nil, apperr.Unavailable("Image store is unavailable", err)
	}

	store.backend = backend
	store.logger.Info("blob_store_opened")
	return backend, nil
}

// Put stores a under key, replacing any previous asset.
func (store *Store) Put(context context.Context, key string, a asset.Asset) error {
	backend, err := store.connect(context)
	if err != nil {
		return err
	}
	if err := backend.Put(context, key, a); err != nil {
		return fmt.Errorf("blob: put %q: %w", key, err)
	}
	return nil
}

// Get returns the asset stored under key, or nil when absent.
func (store *Store) Get(context context.Context, key string) (*asset.Asset, error) {
	backend, err := store.connect(context)
	if err != nil {
		return nil, err
	}
	found, err := backend.Get(context, key)
	if err != nil {
		return nil, fmt.Errorf("blob: get %q: %w", key, err)
	}
	return found, nil
}

// Delete removes key. Deleting an absent key succeeds.
func (store *Store) Delete(context context.Context, key string) error {
	backend, err := store.connect(context)
	if err != nil {
		return err
	}
	if err := backend.Delete(context, key); err != nil {
		return fmt.Errorf("blob: delete %q: %w", key, err)
	}
	return nil
}

// Reset discards the whole namespace.
func (store *Store) Reset(context context.Context) error {
	backend, err := store.connect(context)
	if err != nil {
		return err
	}
	if err := backend.Reset(context); err != nil {
		return fmt.Errorf("blob: reset: %w", err)
	}
	return nil
}

// Ping opens the backend if needed and checks it is reachable.
func (store *Store) Ping(context context.Context) error {
	backend, err := store.connect(context)
	if err != nil {
		return err
	}
	return backend.Ping(context)
}

// Close releases the backend if it was opened.
func (store *Store) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.backend == nil {
		return nil
	}
	err := store.backend.Close()
	store.backend = nil
	return err
}

/*
ResolveDisplayReference mints a short-lived URL for the asset under key.

Returns:
  - *DisplayReference: nil when the key is unknown
  - error: Unavailable when the backend cannot be opened
*/
func (store *Store) ResolveDisplayReference(context context.Context, key string) (*DisplayReference, error) {
	found, err := store.Get(context, key)
	if err != nil || found == nil {
		return nil, err
	}

	token, expiresAt, err := store.tokens.Issue(key, store.ttl)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &DisplayReference{URL: constants.AssetRoutePrefix + token, ExpiresAt: expiresAt}, nil
}
