// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backup exports the catalog as a portable JSON document with every
cover inlined, and restores it.

Document shape:

	[
	  {
	    "id": "...", "title": "...", "chapterProgress": 3,
	    "sourceLink": "...", "category": "...",
	    "blobKey": "...", "remoteUrl": "...",
	    "inlineEncoding": "data:image/jpeg;base64,...",
	    "createdAt": "2026-01-02T03:04:05Z"
	  }
	]

Import also reads documents written by the original browser application, which
used imgKey, imgUrl, imgData, chapter, link and addedAt (epoch milliseconds).
*/
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/taibuivan/manhwaty/internal/platform/apperr"
)

// Entry is one flattened record of a backup document.
type Entry struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ChapterProgress int       `json:"chapterProgress"`
	SourceLink      string    `json:"sourceLink"`
	Category        string    `json:"category"`
	BlobKey         string    `json:"blobKey"`
	RemoteURL       string    `json:"remoteUrl"`
	InlineEncoding  string    `json:"inlineEncoding"`
	CreatedAt       time.Time `json:"createdAt"`
}

// wireEntry accepts both the current and the legacy field names.
type wireEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	ChapterProgress *json.Number `json:"chapterProgress"`
	Chapter         *json.Number `json:"chapter"`

	SourceLink string `json:"sourceLink"`
	Link       string `json:"link"`
	Category   string `json:"category"`

	BlobKey string `json:"blobKey"`
	ImgKey  string `json:"imgKey"`

	RemoteURL string `json:"remoteUrl"`
	ImgURL    string `json:"imgUrl"`

	InlineEncoding string `json:"inlineEncoding"`
	ImgData        string `json:"imgData"`

	CreatedAt json.RawMessage `json:"createdAt"`
	AddedAt   json.RawMessage `json:"addedAt"`
}

// importedEntry is a parsed entry before its cover has been reconciled with the blob store.
type importedEntry struct {
	Entry
	hasCreatedAt bool
}

// Encode renders entries as the two-space indented document.
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	document, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encode document: %w", err)
	}
	return document, nil
}

// parse validates the document shape and normalizes every entry.
// It has no side effects; any failure is an InvalidFormat error.
func parse(document []byte) ([]importedEntry, error) {
	trimmed := bytes.TrimSpace(document)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, apperr.InvalidFormat("Backup must be a JSON array of entries", nil)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, apperr.InvalidFormat("Backup is not valid JSON", err)
	}

	entries := make([]importedEntry, 0, len(raw))
	for index, item := range raw {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			return nil, apperr.InvalidFormat(fmt.Sprintf("Backup entry %d is null", index), nil)
		}

		var wire wireEntry
		decoder := json.NewDecoder(bytes.NewReader(item))
		decoder.UseNumber()
		if err := decoder.Decode(&wire); err != nil {
			return nil, apperr.InvalidFormat(fmt.Sprintf("Backup entry %d is malformed", index), err)
		}

		entry, err := wire.normalize()
		if err != nil {
			return nil, apperr.InvalidFormat(fmt.Sprintf("Backup entry %d is malformed", index), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (wire wireEntry) normalize() (importedEntry, error) {
	entry := importedEntry{Entry: Entry{
		ID:             strings.TrimSpace(wire.ID),
		Title:          strings.TrimSpace(wire.Title),
		SourceLink:     strings.TrimSpace(firstNonEmpty(wire.SourceLink, wire.Link)),
		Category:       strings.TrimSpace(wire.Category),
		BlobKey:        strings.TrimSpace(firstNonEmpty(wire.BlobKey, wire.ImgKey)),
		RemoteURL:      strings.TrimSpace(firstNonEmpty(wire.RemoteURL, wire.ImgURL)),
		InlineEncoding: strings.TrimSpace(firstNonEmpty(wire.InlineEncoding, wire.ImgData)),
	}}

	progress := wire.ChapterProgress
	if progress == nil {
		progress = wire.Chapter
	}
	if progress != nil && *progress != "" {
		value, err := progress.Float64()
		if err != nil {
			return importedEntry{}, fmt.Errorf("chapterProgress: %w", err)
		}
		if value > math.MaxInt32 {
			return importedEntry{}, fmt.Errorf("chapterProgress %s out of range", progress.String())
		}
		entry.ChapterProgress = int(math.Floor(max(value, 0)))
	}

	createdAt, ok, err := parseTimestamp(wire.CreatedAt)
	if err != nil {
		return importedEntry{}, fmt.Errorf("createdAt: %w", err)
	}
	if !ok {
		createdAt, ok, err = parseTimestamp(wire.AddedAt)
		if err != nil {
			return importedEntry{}, fmt.Errorf("addedAt: %w", err)
		}
	}
	entry.CreatedAt, entry.hasCreatedAt = createdAt, ok

	return entry, nil
}

// parseTimestamp accepts an RFC 3339 string or epoch milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return time.Time{}, false, nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return time.Time{}, false, err
		}
		if text == "" {
			return time.Time{}, false, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return time.Time{}, false, err
		}
		return parsed.UTC(), true, nil
	}

	var millis json.Number
	if err := json.Unmarshal(trimmed, &millis); err != nil {
		return time.Time{}, false, err
	}
	value, err := millis.Int64()
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(value).UTC(), true, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
