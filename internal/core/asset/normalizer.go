// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package asset

import (
	"context"
	"log/slog"
	"math"

	"github.com/taibuivan/manhwaty/internal/platform/constants"
	"github.com/taibuivan/manhwaty/internal/platform/ctxutil"
)

// Normalized is the output of the normalization pipeline.
type Normalized struct {
	// Asset holds the bounded bytes (or the original bytes when re-encoding failed).
	Asset Asset

	// Encoding is the portable data URI of Asset.
	Encoding string

	// Width and Height are the rendered dimensions; zero when Reencoded is false.
	Width  int
	Height int

	// Reencoded is false when the original bytes were passed through unchanged.
	Reencoded bool
}

// Normalizer bounds and re-encodes cover images.
type Normalizer struct {
	codec     Codec
	fetcher   Fetcher
	maxWidth  int
	maxHeight int
	logger    *slog.Logger
}

// NewNormalizer returns a normalizer bounded by the platform image limits.
func NewNormalizer(codec Codec, fetcher Fetcher, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		codec:     codec,
		fetcher:   fetcher,
		maxWidth:  constants.MaxImageWidth,
		maxHeight: constants.MaxImageHeight,
		logger:    logger,
	}
}

// Dimensions computes the target size for a natural width x height:
// r = min(1, maxWidth/width, maxHeight/height), each side rounded.
func (normalizer *Normalizer) Dimensions(width, height int) (int, int) {
	return fit(width, height, normalizer.maxWidth, normalizer.maxHeight)
}

func fit(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}

	ratio := math.Min(1, math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height)))
	targetWidth := int(math.Round(float64(width) * ratio))
	targetHeight := int(math.Round(float64(height) * ratio))

	return max(targetWidth, 1), max(targetHeight, 1)
}

// Normalize decodes, bounds and re-encodes raw. It never fails: when the bytes
// cannot be decoded or rendered, the original asset is returned with its own
// data URI.
func (normalizer *Normalizer) Normalize(context context.Context, raw Asset) Normalized {
	logger := ctxutil.LoggerOr(context, normalizer.logger)

	img, err := normalizer.codec.Decode(raw.Data)
	if err != nil {
		logger.Warn("image_decode_failed", slog.String("media_type", raw.MediaType), slog.Any("error", err))
		return passthrough(raw)
	}

	bounds := img.Bounds()
	width, height := normalizer.Dimensions(bounds.Dx(), bounds.Dy())

	rendered, err := normalizer.codec.Render(img, width, height)
	if err != nil {
		logger.Warn("image_render_failed", slog.Int("width", width), slog.Int("height", height), slog.Any("error", err))
		return passthrough(raw)
	}

	bounded := Asset{Data: rendered, MediaType: normalizer.codec.MediaType()}
	return Normalized{
		Asset:     bounded,
		Encoding:  EncodeDataURI(bounded),
		Width:     width,
		Height:    height,
		Reencoded: true,
	}
}

// NormalizeFromURL fetches url and normalizes the result. The boolean is false
// when the fetch failed, in which case callers keep a bare URL reference.
func (normalizer *Normalizer) NormalizeFromURL(context context.Context, url string) (Normalized, bool) {
	raw, err := normalizer.fetcher.Fetch(context, url)
	if err != nil {
		ctxutil.LoggerOr(context, normalizer.logger).Warn("image_fetch_failed",
			slog.String("url", url),
			slog.Any("error", err),
		)
		return Normalized{}, false
	}
	return normalizer.Normalize(context, raw), true
}

func passthrough(raw Asset) Normalized {
	original := New(raw.Data, raw.MediaType)
	return Normalized{Asset: original, Encoding: EncodeDataURI(original)}
}
