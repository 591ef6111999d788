// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shelf

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/pkg/uuid"
)

// # Write Path

/*
resolveImage computes the cover reference of a record being added or updated.

  - An uploaded asset is normalized and stored under the previous blob key (or
    a new one). The record keeps both the key and the inline copy.
  - Otherwise a remote URL is fetched and inlined. When the fetch fails the
    previous inline copy survives only if the URL did not change.
  - Otherwise an existing inline copy is kept.
  - Otherwise the record has no displayable cover.

The previous blob key is carried in every case so that removing the record
still releases its blob.
*/
func (service *Service) resolveImage(context context.Context, previous ImageRef, remoteURL string, pending *asset.Asset) (ImageRef, error) {
	if pending != nil && !pending.IsEmpty() {
		normalized := service.normalizer.Normalize(context, *pending)

		key := previous.BlobKey
		if key == "" {
			key = uuid.New()
		}
		if err := service.blobs.Put(context, key, normalized.Asset); err != nil {
			return ImageRef{}, err
		}

		return ImageRef{BlobKey: key, Inline: normalized.Encoding}, nil
	}

	if remoteURL != "" {
		next := ImageRef{BlobKey: previous.BlobKey, RemoteURL: remoteURL}

		if normalized, ok := service.normalizer.NormalizeFromURL(context, remoteURL); ok {
			next.Inline = normalized.Encoding
		} else if remoteURL == previous.RemoteURL {
			next.Inline = previous.Inline
		}
		return next, nil
	}

	if previous.Inline != "" {
		return ImageRef{BlobKey: previous.BlobKey, Inline: previous.Inline}, nil
	}

	return ImageRef{BlobKey: previous.BlobKey}, nil
}

// # Read Path

// ResolvedImage is the display source of a record's cover. Exactly one of
// Asset and URL is set.
type ResolvedImage struct {
	Kind      ImageKind
	Asset     *asset.Asset
	URL       string
	ExpiresAt time.Time
}

/*
ResolveImage returns the display source of a record's cover, applying the
precedence Inline > RemoteURL > BlobKey. An inline copy that cannot be decoded
falls through to the next form.

Returns:
  - *ResolvedImage: The display source
  - error: NotFound when the record or its cover is missing, Unavailable when
    only the blob could serve it and the blob store cannot be opened
*/
func (service *Service) ResolveImage(context context.Context, id string) (*ResolvedImage, error) {
	record, err := service.Get(context, id)
	if err != nil {
		return nil, err
	}
	ref := record.Image

	if ref.Inline != "" {
		decoded, err := asset.DecodeDataURI(ref.Inline)
		if err == nil {
			return &ResolvedImage{Kind: ImageInline, Asset: &decoded}, nil
		}
		service.log(context).Warn("inline_image_corrupt", slog.String("record_id", id), slog.Any("error", err))
	}

	if ref.RemoteURL != "" {
		return &ResolvedImage{Kind: ImageRemote, URL: ref.RemoteURL}, nil
	}

	if ref.BlobKey != "" {
		reference, err := service.blobs.ResolveDisplayReference(context, ref.BlobKey)
		if err != nil {
			return nil, err
		}
		if reference != nil {
			return &ResolvedImage{Kind: ImageBlob, URL: reference.URL, ExpiresAt: reference.ExpiresAt}, nil
		}
		service.log(context).Warn("blob_missing", slog.String("record_id", id), slog.String("blob_key", ref.BlobKey))
	}

	return nil, apperr.NotFound("Image")
}
