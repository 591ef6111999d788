// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package shelf defines the catalog entries of Manhwaty and the service that
manages them.

Core Responsibility:

  - Record: one tracked title with reading progress and an optional cover.
  - ImageRef: the cover reference, carried as a blob key, a remote URL, an
    inline data URI, or any combination of them.
  - Service: the ordered record collection, its mutations and image resolution.

A record may hold a blob key and an inline copy at the same time. The inline
copy is what backups embed; the blob is what local display reads. When several
forms are present the winner is always Inline, then RemoteURL, then BlobKey.
*/
package shelf

import "time"

// # Image References

// ImageKind names the form a cover resolves to.
type ImageKind string

const (
	// ImageInline resolves to the embedded data URI.
	ImageInline ImageKind = "inline"

	// ImageRemote resolves to an externally hosted URL.
	ImageRemote ImageKind = "remote"

	// ImageBlob resolves through the blob store.
	ImageBlob ImageKind = "blob"

	// ImageNone means the record has no cover.
	ImageNone ImageKind = "none"
)

// ImageRef is the persisted cover reference of a [Record].
type ImageRef struct {
	// BlobKey points into the blob store. While set, the blob exists.
	BlobKey string `json:"blobKey,omitempty"`

	// RemoteURL is a link to an image this system does not own.
	RemoteURL string `json:"remoteUrl,omitempty"`

	// Inline is a self-contained data URI of the (normalized) image.
	Inline string `json:"inline,omitempty"`
}

// Kind applies the resolution precedence Inline > RemoteURL > BlobKey > None.
func (ref ImageRef) Kind() ImageKind {
	switch {
	case ref.Inline != "":
		return ImageInline
	case ref.RemoteURL != "":
		return ImageRemote
	case ref.BlobKey != "":
		return ImageBlob
	default:
		return ImageNone
	}
}

// # Domain Entities

// Record is one catalog entry.
type Record struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ChapterProgress int       `json:"chapterProgress"`
	SourceLink      string    `json:"sourceLink,omitempty"`
	Category        string    `json:"category,omitempty"`
	Image           ImageRef  `json:"image"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Patch carries the caller-supplied fields of an add or update.
// A nil field keeps the existing value.
type Patch struct {
	Title           *string
	ChapterProgress *int
	SourceLink      *string
	Category        *string

	// RemoteURL is the raw URL text typed by the user.
	RemoteURL *string
}

// Filter narrows [Service.List].
type Filter struct {
	// Categories matches records whose category slug equals one of these slugs.
	Categories []string
}

// # Field Identifiers

const (
	FieldTitle           = "title"
	FieldChapterProgress = "chapterProgress"
	FieldSourceLink      = "sourceLink"
	FieldCategory        = "category"
	FieldRemoteURL       = "remoteUrl"
	FieldImage           = "image"
)

// maxTitleLength bounds titles at the edit boundary.
const maxTitleLength = 500
