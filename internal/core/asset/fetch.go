// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/taibuivan/manhwaty/internal/platform/constants"
)

// ErrFetch wraps every failure to retrieve a remote image.
var ErrFetch = errors.New("asset: fetch failed")

// Fetcher retrieves a remote image.
type Fetcher interface {
	Fetch(context context.Context, url string) (Asset, error)
}

// HTTPFetcher is a [Fetcher] over net/http.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher builds a fetcher. A zero timeout keeps the transport default,
// which means no overall deadline; cancellation still follows the request context.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: constants.MaxFetchBytes,
	}
}

// Fetch implements [Fetcher]. Non-2xx responses and bodies above the size cap fail.
func (fetcher *HTTPFetcher) Fetch(context context.Context, url string) (Asset, error) {
	request, err := http.NewRequestWithContext(context, http.MethodGet, url, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	request.Header.Set("Accept", "image/*")

	response, err := fetcher.client.Do(request)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Asset{}, fmt.Errorf("%w: %s returned %d", ErrFetch, url, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, fetcher.maxBytes+1))
	if err != nil {
		return Asset{}, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(body)) > fetcher.maxBytes {
		return Asset{}, fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, fetcher.maxBytes)
	}
	if len(body) == 0 {
		return Asset{}, fmt.Errorf("%w: empty body", ErrFetch)
	}

	mediaType := ""
	if parsed, _, err := mime.ParseMediaType(response.Header.Get("Content-Type")); err == nil {
		mediaType = parsed
	}

	return New(body, mediaType), nil
}
