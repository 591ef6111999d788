// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shelf

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/core/blob"
	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/ctxutil"
	"github.com/taibuivan/manhwaty/internal/platform/validate"
	"github.com/taibuivan/manhwaty/pkg/pointer"
	"github.com/taibuivan/manhwaty/pkg/slice"
	"github.com/taibuivan/manhwaty/pkg/slug"
	"github.com/taibuivan/manhwaty/pkg/uuid"
)

// # Collaborators

// BlobStore is the subset of the blob store used for covers.
type BlobStore interface {
	Put(context context.Context, key string, a asset.Asset) error
	Get(context context.Context, key string) (*asset.Asset, error)
	Delete(context context.Context, key string) error
	Reset(context context.Context) error
	ResolveDisplayReference(context context.Context, key string) (*blob.DisplayReference, error)
}

// ImageNormalizer bounds covers and produces their portable encoding.
type ImageNormalizer interface {
	Normalize(context context.Context, raw asset.Asset) asset.Normalized
	NormalizeFromURL(context context.Context, url string) (asset.Normalized, bool)
}

// # Service Layer

// Service owns the ordered record collection.
//
// Mutations run one at a time under writeMu for their whole duration, including
// blob writes and remote fetches. Reads only take stateMu, so a slow fetch never
// blocks List.
type Service struct {
	repository Repository
	blobs      BlobStore
	normalizer ImageNormalizer
	logger     *slog.Logger
	now        func() time.Time

	writeMu sync.Mutex

	stateMu sync.RWMutex
	loaded  bool
	records []Record
}

// NewService constructs a [Service]. The collection is loaded on first access.
func NewService(repository Repository, blobs BlobStore, normalizer ImageNormalizer, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		blobs:      blobs,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// snapshot returns a copy of the collection, loading it on first use.
func (service *Service) snapshot(context context.Context) ([]Record, error) {
	service.stateMu.RLock()
	if service.loaded {
		records := slices.Clone(service.records)
		service.stateMu.RUnlock()
		return records, nil
	}
	service.stateMu.RUnlock()

	service.stateMu.Lock()
	defer service.stateMu.Unlock()

	if !service.loaded {
		records, err := service.repository.Load(context)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		service.records = records
		service.loaded = true
	}
	return slices.Clone(service.records), nil
}

// commit persists records and publishes them as the current state.
// Callers must hold writeMu.
func (service *Service) commit(context context.Context, records []Record) error {
	if err := service.repository.Save(context, records); err != nil {
		return apperr.Internal(err)
	}

	service.stateMu.Lock()
	service.records = records
	service.loaded = true
	service.stateMu.Unlock()
	return nil
}

func (service *Service) log(context context.Context) *slog.Logger {
	return ctxutil.LoggerOr(context, service.logger)
}

func indexOf(records []Record, id string) int {
	return slices.IndexFunc(records, func(record Record) bool { return record.ID == id })
}

// # Lookups

/*
List returns records in stored order (newest additions first).

Parameters:
  - context: context.Context
  - filter: Filter (category slugs, empty matches all)
  - limit: int (0 returns everything after offset)
  - offset: int

Returns:
  - []Record: The requested window
  - int: Total count of records matching the filter
  - error: Storage failures
*/
func (service *Service) List(context context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
	records, err := service.snapshot(context)
	if err != nil {
		return nil, 0, err
	}

	if len(filter.Categories) > 0 {
		wanted := slice.Map(filter.Categories, slug.From)
		records = slice.Filter(records, func(record Record) bool {
			return slices.Contains(wanted, slug.From(record.Category))
		})
		if records == nil {
			records = []Record{}
		}
	}

	offset = max(offset, 0)
	total := len(records)
	if offset >= total {
		return []Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return records[offset:end], total, nil
}

// Get returns one record or NotFound.
func (service *Service) Get(context context.Context, id string) (*Record, error) {
	records, err := service.snapshot(context)
	if err != nil {
		return nil, err
	}

	index := indexOf(records, id)
	if index < 0 {
		return nil, apperr.NotFound("Record")
	}
	record := records[index]
	return &record, nil
}

// Categories returns the distinct non-empty categories, sorted, keeping the
// first spelling seen for each slug.
func (service *Service) Categories(context context.Context) ([]string, error) {
	records, err := service.snapshot(context)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, record := range records {
		key := slug.From(record.Category)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		categories = append(categories, record.Category)
	}

	sort.Slice(categories, func(i, j int) bool {
		return strings.ToLower(categories[i]) < strings.ToLower(categories[j])
	})
	return categories, nil
}

// # Mutations

func validatePatch(patch Patch, creating bool) error {
	validator := &validate.Validator{}

	if creating || patch.Title != nil {
		title := strings.TrimSpace(pointer.Val(patch.Title))
		validator.Required(FieldTitle, title).MaxLen(FieldTitle, title, maxTitleLength)
	}
	if patch.ChapterProgress != nil {
		validator.Min(FieldChapterProgress, *patch.ChapterProgress, 0)
	}

	return validator.Err()
}

/*
Add creates a record, resolves its cover and inserts it at the front.

Parameters:
  - context: context.Context
  - patch: Patch (Title is required)
  - pending: *asset.Asset (Optional uploaded cover, wins over RemoteURL)

Returns:
  - *Record: The finalized record
  - error: Validation errors, Unavailable when the cover cannot be stored
*/
func (service *Service) Add(context context.Context, patch Patch, pending *asset.Asset) (*Record, error) {
	if err := validatePatch(patch, true); err != nil {
		return nil, err
	}

	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	records, err := service.snapshot(context)
	if err != nil {
		return nil, err
	}

	now := service.now().UTC()
	record := Record{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(*patch.Title),
		ChapterProgress: pointer.Val(patch.ChapterProgress),
		SourceLink:      strings.TrimSpace(pointer.Val(patch.SourceLink)),
		Category:        strings.TrimSpace(pointer.Val(patch.Category)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	record.Image, err = service.resolveImage(context, ImageRef{}, strings.TrimSpace(pointer.Val(patch.RemoteURL)), pending)
	if err != nil {
		return nil, err
	}

	if err := service.commit(context, append([]Record{record}, records...)); err != nil {
		service.releaseBlob(context, record.Image.BlobKey)
		return nil, err
	}

	service.log(context).Info("record_added",
		slog.String("record_id", record.ID),
		slog.String("image_kind", string(record.Image.Kind())),
	)
	return &record, nil
}

/*
Update merges patch over an existing record and re-resolves its cover.
The record keeps its position, id and creation time.

Parameters:
  - context: context.Context
  - id: string
  - patch: Patch (nil fields are retained)
  - pending: *asset.Asset (Optional uploaded cover)

Returns:
  - *Record: The finalized record
  - error: NotFound, validation errors, Unavailable
*/
func (service *Service) Update(context context.Context, id string, patch Patch, pending *asset.Asset) (*Record, error) {
	if err := validatePatch(patch, false); err != nil {
		return nil, err
	}

	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	records, err := service.snapshot(context)
	if err != nil {
		return nil, err
	}

	index := indexOf(records, id)
	if index < 0 {
		return nil, apperr.NotFound("Record")
	}

	record := records[index]
	record.Title = strings.TrimSpace(pointer.Fallback(patch.Title, record.Title))
	record.ChapterProgress = pointer.Fallback(patch.ChapterProgress, record.ChapterProgress)
	record.SourceLink = strings.TrimSpace(pointer.Fallback(patch.SourceLink, record.SourceLink))
	record.Category = strings.TrimSpace(pointer.Fallback(patch.Category, record.Category))
	remoteURL := strings.TrimSpace(pointer.Fallback(patch.RemoteURL, record.Image.RemoteURL))

	record.Image, err = service.resolveImage(context, record.Image, remoteURL, pending)
	if err != nil {
		return nil, err
	}
	record.UpdatedAt = service.now().UTC()

	records[index] = record
	if err := service.commit(context, records); err != nil {
		return nil, err
	}

	service.log(context).Info("record_updated",
		slog.String("record_id", record.ID),
		slog.String("image_kind", string(record.Image.Kind())),
	)
	return &record, nil
}

// IncrementProgress adds one chapter to the record's progress.
func (service *Service) IncrementProgress(context context.Context, id string) (*Record, error) {
	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	records, err := service.snapshot(context)
	if err != nil {
		return nil, err
	}

	index := indexOf(records, id)
	if index < 0 {
		return nil, apperr.NotFound("Record")
	}

	records[index].ChapterProgress++
	records[index].UpdatedAt = service.now().UTC()

	if err := service.commit(context, records); err != nil {
		return nil, err
	}

	record := records[index]
	return &record, nil
}

/*
Remove deletes a record. Its blob is released first; a failed release is
logged and does not keep the record. When the collection then fails to save,
the record survives with a key whose blob is gone; that key is logged.

Returns:
  - error: NotFound, or storage failures of the record collection
*/
func (service *Service) Remove(context context.Context, id string) error {
	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	records, err := service.snapshot(context)
	if err != nil {
		return err
	}

	index := indexOf(records, id)
	if index < 0 {
		return apperr.NotFound("Record")
	}

	key := records[index].Image.BlobKey
	service.releaseBlob(context, key)

	if err := service.commit(context, slices.Delete(records, index, index+1)); err != nil {
		if key != "" {
			service.log(context).Error("record_blob_dangling",
				slog.String("record_id", id),
				slog.String("blob_key", key),
				slog.Any("error", err),
			)
		}
		return err
	}

	service.log(context).Info("record_removed", slog.String("record_id", id))
	return nil
}

// Clear empties the collection and resets the blob namespace. The blob reset
// runs first so that an unavailable blob store leaves the records untouched.
func (service *Service) Clear(context context.Context) error {
	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	if err := service.blobs.Reset(context); err != nil {
		return err
	}

	if err := service.repository.Clear(context); err != nil {
		service.log(context).Error("records_blobs_dangling", slog.Any("error", err))
		return apperr.Internal(err)
	}

	service.stateMu.Lock()
	service.records = []Record{}
	service.loaded = true
	service.stateMu.Unlock()

	service.log(context).Info("records_cleared")
	return nil
}

/*
Replace swaps the whole collection for the one produced by build.

build runs under the writer lock and receives the current collection, so no
other mutation can interleave with it. Blobs referenced only by the replaced
records are released best-effort once the new collection is persisted.

Returns:
  - []Record: The new collection
  - error: Whatever build returns, or storage failures
*/
func (service *Service) Replace(context context.Context, build func(context context.Context, current []Record) ([]Record, error)) ([]Record, error) {
	service.writeMu.Lock()
	defer service.writeMu.Unlock()

	current, err := service.snapshot(context)
	if err != nil {
		return nil, err
	}

	next, err := build(context, slices.Clone(current))
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = []Record{}
	}

	if err := service.commit(context, next); err != nil {
		return nil, err
	}

	kept := make(map[string]bool, len(next))
	for _, record := range next {
		if record.Image.BlobKey != "" {
			kept[record.Image.BlobKey] = true
		}
	}
	for _, record := range current {
		if key := record.Image.BlobKey; key != "" && !kept[key] {
			service.releaseBlob(context, key)
		}
	}

	service.log(context).Info("records_replaced", slog.Int("count", len(next)))
	return slices.Clone(next), nil
}

// releaseBlob deletes key from the blob store, logging failures.
func (service *Service) releaseBlob(context context.Context, key string) {
	if key == "" {
		return
	}
	if err := service.blobs.Delete(context, key); err != nil {
		service.log(context).Warn("blob_delete_failed", slog.String("blob_key", key), slog.Any("error", err))
	}
}
