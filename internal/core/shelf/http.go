// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package shelf

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/manhwaty/internal/core/asset"
	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	requestutil "github.com/taibuivan/manhwaty/internal/platform/request"
	"github.com/taibuivan/manhwaty/internal/platform/respond"
	"github.com/taibuivan/manhwaty/pkg/convert"
	"github.com/taibuivan/manhwaty/pkg/pagination"
	"github.com/taibuivan/manhwaty/pkg/query"
	"github.com/taibuivan/manhwaty/pkg/slice"
)

// # Handler Implementation

// Handler implements the HTTP layer of the catalog.
type Handler struct {
	service        *Service
	maxUploadBytes int64
}

// NewHandler constructs a new shelf [Handler].
func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// Routes returns the /api/v1/records router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listRecords)
	router.Post("/", handler.addRecord)
	router.Delete("/", handler.clearRecords)

	router.Get("/{id}", handler.getRecord)
	router.Patch("/{id}", handler.updateRecord)
	router.Delete("/{id}", handler.removeRecord)
	router.Post("/{id}/increment", handler.incrementProgress)
	router.Get("/{id}/image", handler.getImage)

	return router
}

// CategoryRoutes returns the /api/v1/categories router.
func (handler *Handler) CategoryRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.listCategories)
	return router
}

// # Views

type imageView struct {
	Kind      ImageKind `json:"kind"`
	BlobKey   string    `json:"blobKey,omitempty"`
	RemoteURL string    `json:"remoteUrl,omitempty"`
	HasInline bool      `json:"hasInline"`
	Inline    string    `json:"inline,omitempty"`
	URL       string    `json:"url,omitempty"`
}

type recordView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ChapterProgress int       `json:"chapterProgress"`
	SourceLink      string    `json:"sourceLink"`
	Category        string    `json:"category"`
	Image           imageView `json:"image"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// toView hides the inline data URI unless asked for, since it can weigh hundreds of kilobytes.
func toView(record Record, includeInline bool) recordView {
	view := recordView{
		ID:              record.ID,
		Title:           record.Title,
		ChapterProgress: record.ChapterProgress,
		SourceLink:      record.SourceLink,
		Category:        record.Category,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
		Image: imageView{
			Kind:      record.Image.Kind(),
			BlobKey:   record.Image.BlobKey,
			RemoteURL: record.Image.RemoteURL,
			HasInline: record.Image.Inline != "",
		},
	}
	if includeInline {
		view.Image.Inline = record.Image.Inline
	}
	if view.Image.Kind != ImageNone {
		view.Image.URL = "/api/v1/records/" + record.ID + "/image"
	}
	return view
}

// # Requests

// recordRequest is the JSON body of add and update. Image is an optional data URI.
type recordRequest struct {
	Title           *string `json:"title"`
	ChapterProgress *int    `json:"chapterProgress"`
	SourceLink      *string `json:"sourceLink"`
	Category        *string `json:"category"`
	RemoteURL       *string `json:"remoteUrl"`
	Image           *string `json:"image"`
}

// decodeRecord reads a JSON or multipart body into a patch and an optional pending cover.
func (handler *Handler) decodeRecord(writer http.ResponseWriter, request *http.Request) (Patch, *asset.Asset, error) {
	if requestutil.IsMultipart(request) {
		return handler.decodeMultipart(writer, request)
	}

	request.Body = http.MaxBytesReader(writer, request.Body, handler.maxUploadBytes)

	var body recordRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		return Patch{}, nil, err
	}

	patch := Patch{
		Title:           body.Title,
		ChapterProgress: body.ChapterProgress,
		SourceLink:      body.SourceLink,
		Category:        body.Category,
		RemoteURL:       body.RemoteURL,
	}

	if body.Image == nil || *body.Image == "" {
		return patch, nil, nil
	}
	pending, err := asset.DecodeDataURI(*body.Image)
	if err != nil {
		return Patch{}, nil, apperr.ValidationError("Invalid image", apperr.FieldError{Field: FieldImage, Message: "Must be a data URI"})
	}
	return patch, &pending, nil
}

func (handler *Handler) decodeMultipart(writer http.ResponseWriter, request *http.Request) (Patch, *asset.Asset, error) {
	if err := requestutil.ParseMultipart(writer, request, handler.maxUploadBytes); err != nil {
		return Patch{}, nil, err
	}

	patch := Patch{
		Title:      requestutil.FormValue(request, FieldTitle),
		SourceLink: requestutil.FormValue(request, FieldSourceLink),
		Category:   requestutil.FormValue(request, FieldCategory),
		RemoteURL:  requestutil.FormValue(request, FieldRemoteURL),
	}

	if raw := requestutil.FormValue(request, FieldChapterProgress); raw != nil && *raw != "" {
		progress, err := strconv.Atoi(*raw)
		if err != nil {
			return Patch{}, nil, apperr.ValidationError("Validation failed", apperr.FieldError{Field: FieldChapterProgress, Message: "Must be an integer"})
		}
		patch.ChapterProgress = &progress
	}

	data, mediaType, err := requestutil.FormFile(request, FieldImage)
	if err != nil {
		return Patch{}, nil, err
	}
	if data == nil {
		return patch, nil, nil
	}

	pending := asset.New(data, mediaType)
	return patch, &pending, nil
}

// # Endpoints

/*
GET /api/v1/records.

Description: Lists records in stored order, newest additions first.

Request:
  - page, limit: pagination
  - category: comma-separated category filter, compared by slug
  - inline: "true" to include inline data URIs

Response:
  - 200: []recordView with pagination metadata
*/
func (handler *Handler) listRecords(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	values := request.URL.Query()

	filter := Filter{Categories: query.StringSlice(values.Get("category"))}
	includeInline := convert.ToBool(values.Get("inline"))

	records, total, err := handler.service.List(request.Context(), filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	views := slice.Map(records, func(record Record) recordView { return toView(record, includeInline) })
	respond.Paginated(writer, views, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/records/{id}.

Response:
  - 200: recordView (inline data URI included)
  - 404: ErrNotFound
*/
func (handler *Handler) getRecord(writer http.ResponseWriter, request *http.Request) {
	record, err := handler.service.Get(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, toView(*record, true))
}

/*
POST /api/v1/records.

Description: Adds a record at the front of the catalog. Accepts JSON or
multipart/form-data with an optional "image" file part. An uploaded file wins
over remoteUrl.

Response:
  - 201: recordView
  - 400: ErrValidation
  - 413: ErrPayloadTooLarge
  - 503: ErrUnavailable (blob store)
*/
func (handler *Handler) addRecord(writer http.ResponseWriter, request *http.Request) {
	patch, pending, err := handler.decodeRecord(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Add(request.Context(), patch, pending)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, toView(*record, false))
}

/*
PATCH /api/v1/records/{id}.

Description: Merges the submitted fields over the record. Omitted fields are kept.

Response:
  - 200: recordView
  - 400: ErrValidation
  - 404: ErrNotFound
  - 503: ErrUnavailable (blob store)
*/
func (handler *Handler) updateRecord(writer http.ResponseWriter, request *http.Request) {
	patch, pending, err := handler.decodeRecord(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	record, err := handler.service.Update(request.Context(), requestutil.ID(request, "id"), patch, pending)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, toView(*record, false))
}

// POST /api/v1/records/{id}/increment.
func (handler *Handler) incrementProgress(writer http.ResponseWriter, request *http.Request) {
	record, err := handler.service.IncrementProgress(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, toView(*record, false))
}

// DELETE /api/v1/records/{id}.
func (handler *Handler) removeRecord(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Remove(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// DELETE /api/v1/records empties the catalog and the image store.
func (handler *Handler) clearRecords(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Clear(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

/*
GET /api/v1/records/{id}/image.

Description: Serves the display source of a record's cover. Inline covers are
returned as bytes; remote and blob covers redirect to their URL.

Response:
  - 200: image bytes
  - 302: redirect to the remote URL or to a display reference
  - 404: ErrNotFound
*/
func (handler *Handler) getImage(writer http.ResponseWriter, request *http.Request) {
	resolved, err := handler.service.ResolveImage(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if resolved.Asset != nil {
		writer.Header().Set("Cache-Control", "no-cache")
		respond.Bytes(writer, resolved.Asset.MediaType, resolved.Asset.Data)
		return
	}
	http.Redirect(writer, request, resolved.URL, http.StatusFound)
}

// GET /api/v1/categories.
func (handler *Handler) listCategories(writer http.ResponseWriter, request *http.Request) {
	categories, err := handler.service.Categories(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, categories)
}
