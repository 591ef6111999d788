// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns (JSON and multipart uploads), ensuring consistent error
handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: apperr.PayloadTooLarge when a body limit was hit, validate.ErrInvalidJSON
    if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.PayloadTooLarge(fmt.Sprintf("Body exceeds %d bytes", tooLarge.Limit))
		}
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID/token) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
IsMultipart reports whether the request carries a multipart/form-data body.
*/
func IsMultipart(request *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(request.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

/*
ParseMultipart parses a multipart body bounded by maxBytes.

Returns:
  - error: apperr.PayloadTooLarge when the limit is exceeded, a validation error otherwise
*/
func ParseMultipart(writer http.ResponseWriter, request *http.Request, maxBytes int64) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)

	if err := request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.PayloadTooLarge(fmt.Sprintf("Upload exceeds %d bytes", maxBytes))
		}
		return apperr.ValidationError("Invalid multipart payload")
	}
	return nil
}

/*
FormFile reads an optional file part of an already parsed multipart form.

Returns:
  - []byte: File content (nil when the part is absent or empty)
  - string: Declared content type of the part
  - error: Read failures
*/
func FormFile(request *http.Request, field string) ([]byte, string, error) {
	file, header, err := request.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", apperr.ValidationError("Invalid file part: " + field)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("request: failed to read %s: %w", field, err)
	}
	if len(content) == 0 {
		return nil, "", nil
	}

	return content, header.Header.Get("Content-Type"), nil
}

/*
FormValue returns a pointer to a trimmed form value, or nil when the field was not submitted.
The distinction lets PATCH-style handlers retain fields the client did not send.
*/
func FormValue(request *http.Request, field string) *string {
	if request.MultipartForm == nil {
		return nil
	}
	values, ok := request.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	return &value
}
