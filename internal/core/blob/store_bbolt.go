// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/taibuivan/manhwaty/internal/core/asset"
)

// BoltBackend stores assets in one bucket of a bbolt file.
//
// Values are framed as "<media-type>\n<bytes>".
type BoltBackend struct {
	db     *bbolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) the bbolt file at path and ensures the namespace bucket exists.
func OpenBolt(path, namespace string) (*BoltBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("blob: bolt path is required")
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, fmt.Errorf("blob: namespace is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("blob: create bolt directory: %w", err)
	}

	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("blob: open bolt db: %w", err)
	}

	backend := &BoltBackend{db: db, bucket: []byte(namespace)}
	if err := backend.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return backend, nil
}

func (backend *BoltBackend) ensureBucket() error {
	return backend.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(backend.bucket); err != nil {
			return fmt.Errorf("blob: create bucket: %w", err)
		}
		return nil
	})
}

func (backend *BoltBackend) Put(context context.Context, key string, a asset.Asset) error {
	if err := context.Err(); err != nil {
		return err
	}

	if strings.ContainsRune(a.MediaType, '\n') {
		return fmt.Errorf("blob: media type %q cannot be framed", a.MediaType)
	}

	payload := make([]byte, 0, len(a.MediaType)+1+len(a.Data))
	payload = append(payload, a.MediaType...)
	payload = append(payload, '\n')
	payload = append(payload, a.Data...)

	return backend.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(backend.bucket)
		if bucket == nil {
			return fmt.Errorf("blob: bucket %q is missing", backend.bucket)
		}
		return bucket.Put([]byte(key), payload)
	})
}

func (backend *BoltBackend) Get(context context.Context, key string) (*asset.Asset, error) {
	if err := context.Err(); err != nil {
		return nil, err
	}

	var found *asset.Asset
	err := backend.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(backend.bucket)
		if bucket == nil {
			return fmt.Errorf("blob: bucket %q is missing", backend.bucket)
		}

		payload := bucket.Get([]byte(key))
		if payload == nil {
			return nil
		}

		mediaType, data, ok := bytes.Cut(payload, []byte{'\n'})
		if !ok {
			return errors.New("blob: corrupt bolt value")
		}

		// Bolt memory is only valid inside the transaction.
		found = &asset.Asset{Data: bytes.Clone(data), MediaType: string(mediaType)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (backend *BoltBackend) Delete(context context.Context, key string) error {
	if err := context.Err(); err != nil {
		return err
	}

	return backend.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(backend.bucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Reset deletes and recreates the namespace bucket.
func (backend *BoltBackend) Reset(context context.Context) error {
	if err := context.Err(); err != nil {
		return err
	}

	return backend.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(backend.bucket); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("blob: delete bucket: %w", err)
		}
		_, err := tx.CreateBucket(backend.bucket)
		return err
	})
}

func (backend *BoltBackend) Ping(context.Context) error {
	return backend.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(backend.bucket) == nil {
			return fmt.Errorf("blob: bucket %q is missing", backend.bucket)
		}
		return nil
	})
}

func (backend *BoltBackend) Close() error {
	if backend == nil || backend.db == nil {
		return nil
	}
	return backend.db.Close()
}
