// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blob

import (
	"context"
	"sync"

	"github.com/taibuivan/manhwaty/internal/core/asset"
)

// MemoryBackend keeps assets in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]asset.Asset
}

// NewMemoryBackend returns an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]asset.Asset)}
}

func (backend *MemoryBackend) Put(_ context.Context, key string, a asset.Asset) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	backend.entries[key] = asset.Asset{Data: append([]byte(nil), a.Data...), MediaType: a.MediaType}
	return nil
}

func (backend *MemoryBackend) Get(_ context.Context, key string) (*asset.Asset, error) {
	backend.mu.RLock()
	defer backend.mu.RUnlock()

	found, ok := backend.entries[key]
	if !ok {
		return nil, nil
	}
	return &asset.Asset{Data: append([]byte(nil), found.Data...), MediaType: found.MediaType}, nil
}

func (backend *MemoryBackend) Delete(_ context.Context, key string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	delete(backend.entries, key)
	return nil
}

func (backend *MemoryBackend) Reset(context.Context) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	backend.entries = make(map[string]asset.Asset)
	return nil
}

// Len reports the number of stored assets.
func (backend *MemoryBackend) Len() int {
	backend.mu.RLock()
	defer backend.mu.RUnlock()
	return len(backend.entries)
}

func (backend *MemoryBackend) Ping(context.Context) error { return nil }

func (backend *MemoryBackend) Close() error { return nil }
