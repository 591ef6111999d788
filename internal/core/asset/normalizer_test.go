// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package asset_test

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/platform/constants"
	"github.com/taibuivan/manhwaty/internal/platform/logging"
)

func newNormalizer() *asset.Normalizer {
	return asset.NewNormalizer(
		asset.JPEGCodec{Quality: constants.ImageQuality},
		asset.NewHTTPFetcher(5*time.Second),
		logging.Discard(),
	)
}

/*
TestNormalizer_Dimensions checks the scale factor for several natural sizes.
*/
func TestNormalizer_Dimensions(t *testing.T) {
	normalizer := newNormalizer()

	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"small_untouched", 400, 600, 400, 600},
		{"exact_bounds", 1080, 1600, 1080, 1600},
		{"tall", 4000, 6000, 1067, 1600},
		{"wide", 5400, 1000, 1080, 200},
		{"height_bound", 1000, 3200, 500, 1600},
		{"rounding", 1081, 10, 1080, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := normalizer.Dimensions(tt.width, tt.height)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

/*
TestNormalize_BoundedResize verifies a 4000x6000 image is scaled within 1080x1600
and keeps its aspect ratio.
*/
func TestNormalize_BoundedResize(t *testing.T) {
	normalizer := newNormalizer()

	result := normalizer.Normalize(context.Background(), asset.New(jpegBytes(t, 4000, 6000), "image/jpeg"))
	require.True(t, result.Reencoded)
	assert.Equal(t, "image/jpeg", result.Asset.MediaType)

	config, format, err := image.DecodeConfig(bytes.NewReader(result.Asset.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, config.Width, constants.MaxImageWidth)
	assert.LessOrEqual(t, config.Height, constants.MaxImageHeight)
	assert.InDelta(t, 4000.0/6000.0, float64(config.Width)/float64(config.Height), 0.002)

	decoded, err := asset.DecodeDataURI(result.Encoding)
	require.NoError(t, err)
	assert.Equal(t, result.Asset, decoded)
}

/*
TestNormalize_ReencodesSmallPNG verifies small images are re-encoded at natural size.
*/
func TestNormalize_ReencodesSmallPNG(t *testing.T) {
	result := newNormalizer().Normalize(context.Background(), asset.New(pngBytes(t, 30, 40), ""))

	require.True(t, result.Reencoded)
	assert.Equal(t, 30, result.Width)
	assert.Equal(t, 40, result.Height)
	assert.Equal(t, "image/jpeg", result.Asset.MediaType)
}

/*
TestNormalize_UndecodableFallsBack verifies the original bytes are kept when decoding fails.
*/
func TestNormalize_UndecodableFallsBack(t *testing.T) {
	raw := asset.New([]byte("definitely not an image"), "image/png")

	result := newNormalizer().Normalize(context.Background(), raw)

	assert.False(t, result.Reencoded)
	assert.Equal(t, raw.Data, result.Asset.Data)
	assert.Equal(t, asset.EncodeDataURI(raw), result.Encoding)
}

/*
TestNormalizeFromURL covers fetch success, HTTP failure and a non-image body.
*/
func TestNormalizeFromURL(t *testing.T) {
	cover := pngBytes(t, 20, 20)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/cover.png":
			writer.Header().Set("Content-Type", "image/png")
			_, _ = writer.Write(cover)
		case "/page.html":
			writer.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = writer.Write([]byte("<html></html>"))
		default:
			http.NotFound(writer, request)
		}
	}))
	defer server.Close()

	normalizer := newNormalizer()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		result, ok := normalizer.NormalizeFromURL(ctx, server.URL+"/cover.png")
		require.True(t, ok)
		assert.True(t, result.Reencoded)
		assert.NotEmpty(t, result.Encoding)
	})

	t.Run("not_found", func(t *testing.T) {
		result, ok := normalizer.NormalizeFromURL(ctx, server.URL+"/missing.png")
		assert.False(t, ok)
		assert.Equal(t, asset.Normalized{}, result)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, ok := normalizer.NormalizeFromURL(ctx, "http://127.0.0.1:1/cover.png")
		assert.False(t, ok)
	})

	t.Run("not_an_image", func(t *testing.T) {
		result, ok := normalizer.NormalizeFromURL(ctx, server.URL+"/page.html")
		require.True(t, ok)
		assert.False(t, result.Reencoded)
		assert.Equal(t, "text/html", result.Asset.MediaType)
	})
}
