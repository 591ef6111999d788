// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shelf_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/core/blob"
	"github.com/taibuivan/manhwaty/internal/core/shelf"
	"github.com/taibuivan/manhwaty/internal/platform/constants"
	"github.com/taibuivan/manhwaty/internal/platform/kvstore"
	"github.com/taibuivan/manhwaty/internal/platform/logging"
	"github.com/taibuivan/manhwaty/internal/platform/sec"
)

// stubFetcher serves registered URLs and fails for everything else.
type stubFetcher struct {
	mu     sync.Mutex
	images map[string]asset.Asset
	calls  int
}

func (fetcher *stubFetcher) Fetch(_ context.Context, url string) (asset.Asset, error) {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()

	fetcher.calls++
	found, ok := fetcher.images[url]
	if !ok {
		return asset.Asset{}, fmt.Errorf("%w: %s unreachable", asset.ErrFetch, url)
	}
	return found, nil
}

func (fetcher *stubFetcher) serve(url string, a asset.Asset) {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	fetcher.images[url] = a
}

func (fetcher *stubFetcher) drop(url string) {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	delete(fetcher.images, url)
}

func (fetcher *stubFetcher) callCount() int {
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	return fetcher.calls
}

type fixture struct {
	kv         *kvstore.MemoryStore
	backend    *blob.MemoryBackend
	blobs      *blob.Store
	fetcher    *stubFetcher
	normalizer *asset.Normalizer
	service    *shelf.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := sec.NewTokenService("test-secret", constants.AssetTokenIssuer)
	require.NoError(t, err)

	backend := blob.NewMemoryBackend()
	blobs := blob.NewStore(func(context.Context) (blob.Backend, error) { return backend, nil }, tokens, time.Minute, logging.Discard())

	fetcher := &stubFetcher{images: make(map[string]asset.Asset)}
	normalizer := asset.NewNormalizer(asset.JPEGCodec{Quality: constants.ImageQuality}, fetcher, logging.Discard())

	kv := kvstore.NewMemoryStore()
	service := shelf.NewService(shelf.NewKVRepository(kv, constants.RecordsKey, logging.Discard()), blobs, normalizer, logging.Discard())

	return &fixture{kv: kv, backend: backend, blobs: blobs, fetcher: fetcher, normalizer: normalizer, service: service}
}

// reload builds a fresh service over the same KV and blob stores.
func (f *fixture) reload() *shelf.Service {
	return shelf.NewService(shelf.NewKVRepository(f.kv, constants.RecordsKey, logging.Discard()), f.blobs, f.normalizer, logging.Discard())
}

func pngAsset(t *testing.T, width, height int, fill color.Color) asset.Asset {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}

	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, img))
	return asset.Asset{Data: buffer.Bytes(), MediaType: "image/png"}
}

func decodedSize(t *testing.T, encoding string) (int, int) {
	t.Helper()

	decoded, err := asset.DecodeDataURI(encoding)
	require.NoError(t, err)
	config, _, err := image.DecodeConfig(bytes.NewReader(decoded.Data))
	require.NoError(t, err)
	return config.Width, config.Height
}
