// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shelf_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/core/blob"
	"github.com/taibuivan/manhwaty/internal/core/shelf"
	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/constants"
	"github.com/taibuivan/manhwaty/internal/platform/logging"
	"github.com/taibuivan/manhwaty/pkg/pointer"
)

/*
TestImageRef_Kind verifies the precedence Inline > RemoteURL > BlobKey > None.
*/
func TestImageRef_Kind(t *testing.T) {
	tests := []struct {
		name string
		ref  shelf.ImageRef
		want shelf.ImageKind
	}{
		{"none", shelf.ImageRef{}, shelf.ImageNone},
		{"blob_only", shelf.ImageRef{BlobKey: "k"}, shelf.ImageBlob},
		{"remote_only", shelf.ImageRef{RemoteURL: "https://x"}, shelf.ImageRemote},
		{"remote_over_blob", shelf.ImageRef{BlobKey: "k", RemoteURL: "https://x"}, shelf.ImageRemote},
		{"inline_over_blob", shelf.ImageRef{BlobKey: "k", Inline: "data:,a"}, shelf.ImageInline},
		{"inline_over_all", shelf.ImageRef{BlobKey: "k", RemoteURL: "https://x", Inline: "data:,a"}, shelf.ImageInline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Kind())
		})
	}
}

/*
TestService_Add_LocalFile verifies an uploaded cover is normalized, stored as a
blob and inlined.
*/
func TestService_Add_LocalFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cover := pngAsset(t, 60, 90, color.White)
	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("  Solo Leveling ")}, &cover)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "Solo Leveling", record.Title)
	assert.Equal(t, 0, record.ChapterProgress)
	assert.Equal(t, shelf.ImageInline, record.Image.Kind())
	assert.Empty(t, record.Image.RemoteURL)
	require.NotEmpty(t, record.Image.BlobKey)

	stored, err := f.backend.Get(ctx, record.Image.BlobKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "image/jpeg", stored.MediaType)

	inline, err := asset.DecodeDataURI(record.Image.Inline)
	require.NoError(t, err)
	assert.Equal(t, *stored, inline)
}

/*
TestService_Add_InsertsAtFront verifies newest records come first.
*/
func TestService_Add_InsertsAtFront(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("First")}, nil)
	require.NoError(t, err)
	second, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Second")}, nil)
	require.NoError(t, err)

	records, total, err := f.service.List(ctx, shelf.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{second.ID, first.ID}, []string{records[0].ID, records[1].ID})
}

/*
TestService_Add_RemoteURL covers a successful fetch and a failed one.
*/
func TestService_Add_RemoteURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fetcher.serve("https://img.example/ok.png", pngAsset(t, 1200, 1800, color.Black))

	fetched, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Fetched"), RemoteURL: pointer.To("https://img.example/ok.png")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/ok.png", fetched.Image.RemoteURL)
	assert.Empty(t, fetched.Image.BlobKey)
	require.NotEmpty(t, fetched.Image.Inline)

	width, height := decodedSize(t, fetched.Image.Inline)
	assert.LessOrEqual(t, width, constants.MaxImageWidth)
	assert.LessOrEqual(t, height, constants.MaxImageHeight)

	bare, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Bare"), RemoteURL: pointer.To("https://img.example/down.png")}, nil)
	require.NoError(t, err)
	assert.Equal(t, shelf.ImageRemote, bare.Image.Kind())
	assert.Empty(t, bare.Image.Inline)
}

/*
TestService_Update_LocalFilePrecedence verifies an uploaded file wins over a URL
submitted in the same update.
*/
func TestService_Update_LocalFilePrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fetcher.serve("https://img.example/url.png", pngAsset(t, 10, 10, color.Black))

	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Tower of God")}, nil)
	require.NoError(t, err)
	callsBefore := f.fetcher.callCount()

	cover := pngAsset(t, 40, 20, color.White)
	updated, err := f.service.Update(ctx, record.ID, shelf.Patch{RemoteURL: pointer.To("https://img.example/url.png")}, &cover)
	require.NoError(t, err)

	assert.Empty(t, updated.Image.RemoteURL)
	assert.NotEmpty(t, updated.Image.BlobKey)
	width, height := decodedSize(t, updated.Image.Inline)
	assert.Equal(t, 40, width)
	assert.Equal(t, 20, height)
	assert.Equal(t, callsBefore, f.fetcher.callCount())
}

/*
TestService_Update_ReusesBlobKey verifies a replaced upload overwrites the same blob.
*/
func TestService_Update_ReusesBlobKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := pngAsset(t, 10, 10, color.White)
	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Omniscient Reader")}, &first)
	require.NoError(t, err)

	second := pngAsset(t, 30, 30, color.Black)
	updated, err := f.service.Update(ctx, record.ID, shelf.Patch{}, &second)
	require.NoError(t, err)

	assert.Equal(t, record.Image.BlobKey, updated.Image.BlobKey)
	assert.Equal(t, 1, f.backend.Len())
}

/*
TestService_Update_URLFailureRetention verifies a failed re-fetch keeps the cached
copy only when the URL is unchanged.
*/
func TestService_Update_URLFailureRetention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	url := "https://img.example/cover.png"
	f.fetcher.serve(url, pngAsset(t, 10, 10, color.White))

	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Lookism"), RemoteURL: pointer.To(url)}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, record.Image.Inline)

	f.fetcher.drop(url)

	sameURL, err := f.service.Update(ctx, record.ID, shelf.Patch{Title: pointer.To("Lookism (2014)")}, nil)
	require.NoError(t, err)
	assert.Equal(t, url, sameURL.Image.RemoteURL)
	assert.Equal(t, record.Image.Inline, sameURL.Image.Inline)

	otherURL, err := f.service.Update(ctx, record.ID, shelf.Patch{RemoteURL: pointer.To("https://img.example/other.png")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/other.png", otherURL.Image.RemoteURL)
	assert.Empty(t, otherURL.Image.Inline)
}

/*
TestService_Update_Merge verifies omitted fields, order and creation time are kept.
*/
func TestService_Update_Merge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older, err := f.service.Add(ctx, shelf.Patch{
		Title:           pointer.To("The Breaker"),
		ChapterProgress: pointer.To(12),
		SourceLink:      pointer.To("https://read.example/breaker"),
		Category:        pointer.To("Action"),
	}, nil)
	require.NoError(t, err)
	_, err = f.service.Add(ctx, shelf.Patch{Title: pointer.To("Newer")}, nil)
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, older.ID, shelf.Patch{Category: pointer.To("Martial Arts")}, nil)
	require.NoError(t, err)

	assert.Equal(t, older.ID, updated.ID)
	assert.Equal(t, "The Breaker", updated.Title)
	assert.Equal(t, 12, updated.ChapterProgress)
	assert.Equal(t, "https://read.example/breaker", updated.SourceLink)
	assert.Equal(t, "Martial Arts", updated.Category)
	assert.Equal(t, older.CreatedAt, updated.CreatedAt)

	records, _, err := f.service.List(ctx, shelf.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, older.ID, records[1].ID)
}

/*
TestService_Validation covers the edit boundary rules.
*/
func TestService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("   ")}, nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.service.Add(ctx, shelf.Patch{}, nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.service.Add(ctx, shelf.Patch{Title: pointer.To("Ok"), ChapterProgress: pointer.To(-1)}, nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Ok")}, nil)
	require.NoError(t, err)

	_, err = f.service.Update(ctx, record.ID, shelf.Patch{Title: pointer.To("")}, nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

/*
TestService_NotFound verifies unknown ids are surfaced by every id-based operation.
*/
func TestService_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Get(ctx, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = f.service.Update(ctx, "missing", shelf.Patch{Title: pointer.To("x")}, nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = f.service.IncrementProgress(ctx, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	err = f.service.Remove(ctx, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = f.service.ResolveImage(ctx, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestService_IncrementProgress verifies N increments yield N, including concurrent ones.
*/
func TestService_IncrementProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Nano Machine")}, nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := f.service.IncrementProgress(ctx, record.ID)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.IncrementProgress(ctx, record.ID)
		}()
	}
	wg.Wait()

	current, err := f.service.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, current.ChapterProgress)
}

/*
TestService_Remove_Cascades verifies removing a record deletes its blob.
*/
func TestService_Remove_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cover := pngAsset(t, 8, 8, color.White)
	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Eleceed")}, &cover)
	require.NoError(t, err)

	require.NoError(t, f.service.Remove(ctx, record.ID))

	found, err := f.blobs.Get(ctx, record.Image.BlobKey)
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = f.service.Get(ctx, record.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestService_Remove_KeyKeptAfterURLEdit verifies a record switched from an upload
to a URL still releases its blob when removed.
*/
func TestService_Remove_KeyKeptAfterURLEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cover := pngAsset(t, 8, 8, color.White)
	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Wind Breaker")}, &cover)
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, record.ID, shelf.Patch{RemoteURL: pointer.To("https://img.example/unreachable.png")}, nil)
	require.NoError(t, err)
	assert.Equal(t, record.Image.BlobKey, updated.Image.BlobKey)

	require.NoError(t, f.service.Remove(ctx, record.ID))
	assert.Equal(t, 0, f.backend.Len())
}

// brokenRepository fails every write once broken is set.
type brokenRepository struct {
	shelf.Repository
	broken bool
}

func (repository *brokenRepository) Save(context context.Context, records []shelf.Record) error {
	if repository.broken {
		return errors.New("disk full")
	}
	return repository.Repository.Save(context, records)
}

func (repository *brokenRepository) Clear(context context.Context) error {
	if repository.broken {
		return errors.New("disk full")
	}
	return repository.Repository.Clear(context)
}

/*
TestService_Remove_SaveFailureLogsDanglingKey verifies a failed save after the
blob release keeps the record and logs the key that no longer resolves.
*/
func TestService_Remove_SaveFailureLogsDanglingKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var logs bytes.Buffer
	repository := &brokenRepository{Repository: shelf.NewKVRepository(f.kv, constants.RecordsKey, logging.Discard())}
	service := shelf.NewService(repository, f.blobs, f.normalizer, slog.New(slog.NewJSONHandler(&logs, nil)))

	cover := pngAsset(t, 8, 8, color.White)
	record, err := service.Add(ctx, shelf.Patch{Title: pointer.To("Omniscient Reader")}, &cover)
	require.NoError(t, err)

	repository.broken = true

	err = service.Remove(ctx, record.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))

	kept, err := service.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Image.BlobKey, kept.Image.BlobKey)

	assert.Contains(t, logs.String(), `"msg":"record_blob_dangling"`)
	assert.Contains(t, logs.String(), record.Image.BlobKey)

	require.Error(t, service.Clear(ctx))
	assert.Contains(t, logs.String(), `"msg":"records_blobs_dangling"`)
}

/*
TestService_ResolveImage_Precedence verifies the inline copy is served even after
the blob was deleted out-of-band.
*/
func TestService_ResolveImage_Precedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cover := pngAsset(t, 8, 8, color.White)
	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Sweet Home")}, &cover)
	require.NoError(t, err)

	require.NoError(t, f.backend.Delete(ctx, record.Image.BlobKey))

	resolved, err := f.service.ResolveImage(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, shelf.ImageInline, resolved.Kind)
	require.NotNil(t, resolved.Asset)
	assert.Equal(t, "image/jpeg", resolved.Asset.MediaType)
}

/*
TestService_ResolveImage_Forms covers remote, blob and missing covers.
*/
func TestService_ResolveImage_Forms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	remote, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Remote"), RemoteURL: pointer.To("https://img.example/r.png")}, nil)
	require.NoError(t, err)
	resolved, err := f.service.ResolveImage(ctx, remote.ID)
	require.NoError(t, err)
	assert.Equal(t, shelf.ImageRemote, resolved.Kind)
	assert.Equal(t, "https://img.example/r.png", resolved.URL)

	blobOnly, err := f.service.Replace(ctx, func(_ context.Context, current []shelf.Record) ([]shelf.Record, error) {
		require.NoError(t, f.blobs.Put(ctx, "blob-1", pngAsset(t, 4, 4, color.White)))
		return append(current, shelf.Record{ID: "b", Title: "Blob", Image: shelf.ImageRef{BlobKey: "blob-1"}}), nil
	})
	require.NoError(t, err)
	require.Len(t, blobOnly, 2)

	resolved, err = f.service.ResolveImage(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, shelf.ImageBlob, resolved.Kind)
	assert.Contains(t, resolved.URL, constants.AssetRoutePrefix)

	none, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("None")}, nil)
	require.NoError(t, err)
	_, err = f.service.ResolveImage(ctx, none.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

/*
TestService_BlobUnavailable verifies an upload is aborted without a partial write
when the blob store cannot be opened.
*/
func TestService_BlobUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	broken := blob.NewStore(func(context.Context) (blob.Backend, error) {
		return nil, assert.AnError
	}, nil, 0, logging.Discard())
	service := shelf.NewService(shelf.NewKVRepository(f.kv, constants.RecordsKey, logging.Discard()), broken, f.normalizer, logging.Discard())

	cover := pngAsset(t, 8, 8, color.White)
	_, err := service.Add(ctx, shelf.Patch{Title: pointer.To("Unlucky")}, &cover)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnavailable))

	records, total, err := service.List(ctx, shelf.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, records)

	_, ok, err := f.kv.Get(ctx, constants.RecordsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

/*
TestService_Clear verifies the records and the blob namespace are both emptied.
*/
func TestService_Clear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cover := pngAsset(t, 8, 8, color.White)
	_, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("One")}, &cover)
	require.NoError(t, err)

	require.NoError(t, f.service.Clear(ctx))

	records, total, err := f.service.List(ctx, shelf.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, records)
	assert.Equal(t, 0, f.backend.Len())
}

/*
TestService_PersistsAcrossInstances verifies lazy loading from the KV store and
that a corrupt document reads as empty.
*/
func TestService_PersistsAcrossInstances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Persisted"), ChapterProgress: pointer.To(3)}, nil)
	require.NoError(t, err)

	reloaded, err := f.reload().Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", reloaded.Title)
	assert.Equal(t, 3, reloaded.ChapterProgress)

	require.NoError(t, f.kv.Set(ctx, constants.RecordsKey, "{not json"))
	_, total, err := f.reload().List(ctx, shelf.Filter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

/*
TestService_ListFilterAndCategories covers category slugs and pagination windows.
*/
func TestService_ListFilterAndCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, entry := range []struct{ title, category string }{
		{"A", "Action"},
		{"B", "romance"},
		{"C", "action "},
		{"D", ""},
		{"E", "Romance"},
	} {
		_, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To(entry.title), Category: pointer.To(entry.category)}, nil)
		require.NoError(t, err)
	}

	actions, total, err := f.service.List(ctx, shelf.Filter{Categories: []string{"ACTION"}}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "C", actions[0].Title)

	page, total, err := f.service.List(ctx, shelf.Filter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "C", page[0].Title)

	beyond, _, err := f.service.List(ctx, shelf.Filter{}, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	categories, err := f.service.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"action", "Romance"}, categories)
}

/*
TestService_Replace_ReleasesOrphanedBlobs verifies blobs only referenced by the
replaced records are deleted while shared ones survive.
*/
func TestService_Replace_ReleasesOrphanedBlobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep := pngAsset(t, 8, 8, color.White)
	drop := pngAsset(t, 8, 8, color.Black)
	kept, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Kept")}, &keep)
	require.NoError(t, err)
	dropped, err := f.service.Add(ctx, shelf.Patch{Title: pointer.To("Dropped")}, &drop)
	require.NoError(t, err)

	_, err = f.service.Replace(ctx, func(_ context.Context, current []shelf.Record) ([]shelf.Record, error) {
		assert.Len(t, current, 2)
		return []shelf.Record{*kept}, nil
	})
	require.NoError(t, err)

	found, err := f.blobs.Get(ctx, kept.Image.BlobKey)
	require.NoError(t, err)
	assert.NotNil(t, found)

	found, err = f.blobs.Get(ctx, dropped.Image.BlobKey)
	require.NoError(t, err)
	assert.Nil(t, found)
}
