// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package asset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// ErrInvalidDataURI is returned when a portable encoding cannot be parsed.
var ErrInvalidDataURI = errors.New("asset: invalid data URI")

const dataScheme = "data:"

// EncodeDataURI renders the asset as "data:<media-type>;base64,<payload>".
func EncodeDataURI(a Asset) string {
	mediaType := a.MediaType
	if mediaType == "" {
		mediaType = fallbackMediaType
	}
	return dataScheme + mediaType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// DecodeDataURI parses a data URI back into an [Asset].
//
// Both base64 and percent-encoded payloads are accepted. A missing media type
// defaults to text/plain as in RFC 2397. Control characters in the header are
// rejected.
func DecodeDataURI(encoded string) (Asset, error) {
	encoded = strings.TrimSpace(encoded)
	if !strings.HasPrefix(strings.ToLower(encoded), dataScheme) {
		return Asset{}, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}

	header, payload, found := strings.Cut(encoded[len(dataScheme):], ",")
	if !found {
		return Asset{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}

	if strings.ContainsFunc(header, unicode.IsControl) {
		return Asset{}, fmt.Errorf("%w: control character in media type", ErrInvalidDataURI)
	}

	mediaType, isBase64 := header, false
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		mediaType, isBase64 = header[:len(header)-len(";base64")], true
	}
	if mediaType == "" {
		mediaType = "text/plain;charset=US-ASCII"
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers omit padding.
			decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return Asset{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
			}
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return Asset{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		data = []byte(unescaped)
	}

	return Asset{Data: data, MediaType: mediaType}, nil
}
