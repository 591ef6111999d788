// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backup

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/core/shelf"
	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/ctxutil"
	"github.com/taibuivan/manhwaty/pkg/uuid"
)

// untitled replaces blank titles of imported entries.
const untitled = "(untitled)"

// Codec composes the record service and the blob store at export/import time.
type Codec struct {
	records    *shelf.Service
	blobs      shelf.BlobStore
	normalizer shelf.ImageNormalizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewCodec constructs a [Codec].
func NewCodec(records *shelf.Service, blobs shelf.BlobStore, normalizer shelf.ImageNormalizer, logger *slog.Logger) *Codec {
	return &Codec{records: records, blobs: blobs, normalizer: normalizer, logger: logger, now: time.Now}
}

/*
Export builds the backup document with every cover inlined where possible.

Records without an inline copy are filled the way they display: from their
remote URL when one is set, otherwise from their blob. A blob kept next to a
remote URL is a superseded upload and is never inlined. Stored records are never
modified. Blob and network failures only leave the entry without an inline
encoding.

Returns:
  - []byte: The JSON document
  - error: Failures to read the record collection
*/
func (codec *Codec) Export(context context.Context) ([]byte, error) {
	records, _, err := codec.records.List(context, shelf.Filter{}, 0, 0)
	if err != nil {
		return nil, err
	}

	logger := ctxutil.LoggerOr(context, codec.logger)
	entries := make([]Entry, 0, len(records))

	for _, record := range records {
		entry := Entry{
			ID:              record.ID,
			Title:           record.Title,
			ChapterProgress: record.ChapterProgress,
			SourceLink:      record.SourceLink,
			Category:        record.Category,
			BlobKey:         record.Image.BlobKey,
			RemoteURL:       record.Image.RemoteURL,
			InlineEncoding:  record.Image.Inline,
			CreatedAt:       record.CreatedAt,
		}

		switch {
		case entry.InlineEncoding != "":
		case entry.RemoteURL != "":
			if normalized, ok := codec.normalizer.NormalizeFromURL(context, entry.RemoteURL); ok {
				entry.InlineEncoding = normalized.Encoding
			}
		case entry.BlobKey != "":
			found, err := codec.blobs.Get(context, entry.BlobKey)
			switch {
			case err != nil:
				logger.Warn("export_blob_read_failed", slog.String("record_id", record.ID), slog.Any("error", err))
			case found != nil:
				entry.InlineEncoding = asset.EncodeDataURI(*found)
			}
		}

		entries = append(entries, entry)
	}

	logger.Info("backup_exported", slog.Int("count", len(entries)))
	return Encode(entries)
}

/*
Import replaces the catalog with the records of document.

The document is fully parsed before anything is written; a malformed document
returns InvalidFormat and leaves the catalog untouched. Inline covers are
written back to the blob store so that blob keys always point at stored assets.

Returns:
  - []shelf.Record: The restored collection
  - error: InvalidFormat, or storage failures of the record collection
*/
func (codec *Codec) Import(context context.Context, document []byte) ([]shelf.Record, error) {
	entries, err := parse(document)
	if err != nil {
		return nil, err
	}

	restored, err := codec.records.Replace(context, codec.replacement(entries))
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, codec.logger).Info("backup_imported", slog.Int("count", len(restored)))
	return restored, nil
}

// replacement adapts restore to the builder expected by [shelf.Service.Replace].
func (codec *Codec) replacement(entries []importedEntry) func(context.Context, []shelf.Record) ([]shelf.Record, error) {
	return func(ctx context.Context, _ []shelf.Record) ([]shelf.Record, error) {
		return codec.restore(ctx, entries), nil
	}
}

// restore turns parsed entries into records, repopulating the blob store.
func (codec *Codec) restore(context context.Context, entries []importedEntry) []shelf.Record {
	logger := ctxutil.LoggerOr(context, codec.logger)
	now := codec.now().UTC()

	reconciler := &blobReconciler{blobs: codec.blobs, logger: logger, claimed: make(map[string]bool, len(entries))}
	seen := make(map[string]bool, len(entries))
	records := make([]shelf.Record, 0, len(entries))

	for _, entry := range entries {
		id := entry.ID
		if id == "" || seen[id] {
			id = uuid.New()
		}
		seen[id] = true

		title := entry.Title
		if title == "" {
			title = untitled
		}

		createdAt := entry.CreatedAt
		if !entry.hasCreatedAt {
			createdAt = now
		}

		records = append(records, shelf.Record{
			ID:              id,
			Title:           title,
			ChapterProgress: entry.ChapterProgress,
			SourceLink:      entry.SourceLink,
			Category:        entry.Category,
			Image:           reconciler.reconcile(context, id, entry.Entry),
			CreatedAt:       createdAt,
			UpdatedAt:       now,
		})
	}
	return records
}

// blobReconciler restores blob entries for imported covers. Once the blob
// store reports Unavailable it is not retried for the rest of the import.
// A key is handed to one record only; later claimants get a copy under a new key.
type blobReconciler struct {
	blobs   shelf.BlobStore
	logger  *slog.Logger
	down    bool
	claimed map[string]bool
}

// claim records key as owned by the current entry and returns it.
func (reconciler *blobReconciler) claim(key string) string {
	reconciler.claimed[key] = true
	return key
}

func (reconciler *blobReconciler) failed(recordID, operation string, err error) {
	if apperr.HasCode(err, apperr.CodeUnavailable) {
		reconciler.down = true
	}
	reconciler.logger.Warn("import_blob_failed",
		slog.String("record_id", recordID),
		slog.String("operation", operation),
		slog.Any("error", err),
	)
}

/*
reconcile computes the cover reference of one imported entry:

  - inline without key: stored under a fresh key
  - inline with a key unknown to this store: stored under that key
  - key without inline: kept only if the blob exists
  - key already claimed earlier in this import: the asset is copied under a
    fresh key

Whenever the blob store cannot serve, the entry falls back to its inline copy.
*/
func (reconciler *blobReconciler) reconcile(context context.Context, recordID string, entry Entry) shelf.ImageRef {
	ref := shelf.ImageRef{RemoteURL: entry.RemoteURL}

	var inline *asset.Asset
	if entry.InlineEncoding != "" {
		decoded, err := asset.DecodeDataURI(entry.InlineEncoding)
		if err != nil {
			reconciler.logger.Warn("import_inline_invalid", slog.String("record_id", recordID), slog.Any("error", err))
		} else {
			inline = &decoded
			ref.Inline = entry.InlineEncoding
		}
	}

	if reconciler.down {
		return ref
	}

	key := entry.BlobKey
	shared := key != "" && reconciler.claimed[key]

	if inline == nil {
		if key == "" {
			return ref
		}
		found, err := reconciler.blobs.Get(context, key)
		if err != nil {
			reconciler.failed(recordID, "get", err)
			return ref
		}
		if found == nil {
			return ref
		}
		if !shared {
			ref.BlobKey = reconciler.claim(key)
			return ref
		}
		inline = found
	}

	switch {
	case shared || key == "":
		key = uuid.New()
	default:
		found, err := reconciler.blobs.Get(context, key)
		if err != nil {
			reconciler.failed(recordID, "get", err)
			return ref
		}
		if found != nil {
			ref.BlobKey = reconciler.claim(key)
			return ref
		}
	}

	if err := reconciler.blobs.Put(context, key, *inline); err != nil {
		reconciler.failed(recordID, "put", err)
		return ref
	}
	ref.BlobKey = reconciler.claim(key)
	return ref
}
