// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backup

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/constants"
	requestutil "github.com/taibuivan/manhwaty/internal/platform/request"
	"github.com/taibuivan/manhwaty/internal/platform/respond"
)

// Handler exposes export and import.
type Handler struct {
	codec          *Codec
	maxUploadBytes int64
}

// NewHandler constructs a new backup [Handler].
func NewHandler(codec *Codec, maxUploadBytes int64) *Handler {
	return &Handler{codec: codec, maxUploadBytes: maxUploadBytes}
}

// Routes returns the /api/v1/backup router.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.exportBackup)
	router.Post("/", handler.importBackup)
	return router
}

/*
GET /api/v1/backup.

Response:
  - 200: attachment manhwaty_backup_with_images.json
*/
func (handler *Handler) exportBackup(writer http.ResponseWriter, request *http.Request) {
	document, err := handler.codec.Export(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Attachment(writer, "application/json", constants.BackupFileName, document)
}

/*
POST /api/v1/backup.

Description: Replaces the catalog with a backup document, sent either as the raw
request body or as the "file" part of a multipart form.

Response:
  - 200: {"count": n}
  - 413: ErrPayloadTooLarge
  - 422: ErrInvalidFormat (catalog left untouched)
*/
func (handler *Handler) importBackup(writer http.ResponseWriter, request *http.Request) {
	document, err := handler.readDocument(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	records, err := handler.codec.Import(request.Context(), document)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int{"count": len(records)})
}

func (handler *Handler) readDocument(writer http.ResponseWriter, request *http.Request) ([]byte, error) {
	if requestutil.IsMultipart(request) {
		if err := requestutil.ParseMultipart(writer, request, handler.maxUploadBytes); err != nil {
			return nil, err
		}
		document, _, err := requestutil.FormFile(request, "file")
		if err != nil {
			return nil, err
		}
		if document == nil {
			return nil, apperr.ValidationError("Missing backup file", apperr.FieldError{Field: "file", Message: "This field is required"})
		}
		return document, nil
	}

	document, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, handler.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.PayloadTooLarge(fmt.Sprintf("Backup exceeds %d bytes", handler.maxUploadBytes))
		}
		return nil, fmt.Errorf("backup: read body: %w", err)
	}
	return document, nil
}
