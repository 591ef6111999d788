// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package asset turns cover images into bounded, portable assets.

A cover arrives either as raw bytes (an uploaded file) or as a remote URL. The
[Normalizer] decodes it, scales it to fit within 1080x1600, re-encodes it as
JPEG and returns both the bytes and a self-contained data URI that can be
embedded in a backup document.

Image work is best-effort: decode and fetch failures degrade the result and
never surface as errors to the record layer.
*/
package asset

import (
	"net/http"
	"strings"
)

// fallbackMediaType is used when nothing better can be inferred.
const fallbackMediaType = "application/octet-stream"

// Asset is a binary image together with its media type.
type Asset struct {
	Data      []byte
	MediaType string
}

// New builds an [Asset], sniffing the media type when it is missing or generic.
func New(data []byte, mediaType string) Asset {
	return Asset{Data: data, MediaType: DetectMediaType(data, mediaType)}
}

// IsEmpty reports whether the asset carries no bytes.
func (a Asset) IsEmpty() bool {
	return len(a.Data) == 0
}

// DetectMediaType returns declared unless it is empty or generic, in which case
// the content is sniffed.
func DetectMediaType(data []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != fallbackMediaType {
		return declared
	}
	if len(data) == 0 {
		return fallbackMediaType
	}
	return http.DetectContentType(data)
}
