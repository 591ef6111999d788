// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package blob

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	requestutil "github.com/taibuivan/manhwaty/internal/platform/request"
	"github.com/taibuivan/manhwaty/internal/platform/respond"
	"github.com/taibuivan/manhwaty/internal/platform/sec"
)

// Handler serves display references.
type Handler struct {
	store  *Store
	tokens *sec.TokenService
}

// NewHandler constructs a new [Handler].
func NewHandler(store *Store, tokens *sec.TokenService) *Handler {
	return &Handler{store: store, tokens: tokens}
}

// Routes returns a [chi.Router] serving display references.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/{token}", handler.serveAsset)
	return router
}

/*
GET /api/v1/assets/{token}.

Description: Streams the image granted by a display reference token.

Response:
  - 200: image bytes, with ETag and private caching
  - 304: If-None-Match matched
  - 401: ErrUnauthorized: token invalid or expired
  - 404: ErrNotFound: asset deleted since the token was issued
  - 503: ErrUnavailable: image store cannot be opened
*/
func (handler *Handler) serveAsset(writer http.ResponseWriter, request *http.Request) {
	key, err := handler.tokens.Verify(requestutil.ID(request, "token"))
	if err != nil {
		respond.Error(writer, request, apperr.Unauthorized("Invalid or expired asset token"))
		return
	}

	found, err := handler.store.Get(request.Context(), key)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if found == nil {
		respond.Error(writer, request, apperr.NotFound("Asset"))
		return
	}

	etag := `"` + sec.Digest(found.Data) + `"`
	writer.Header().Set("ETag", etag)
	writer.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(handler.store.ttl.Seconds())))

	if request.Header.Get("If-None-Match") == etag {
		writer.WriteHeader(http.StatusNotModified)
		return
	}

	respond.Bytes(writer, found.MediaType, found.Data)
}
