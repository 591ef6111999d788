// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug folds free-text labels into ASCII keys.
//
// # Usage
//
// Categories are typed by hand ("Romance", "romance ", "Romancé"), so the
// catalog compares and de-duplicates them by slug ("romance").
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches any run of characters outside [a-z0-9].
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

	// stripMarks decomposes accented letters and drops the combining marks.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// From converts an arbitrary Unicode string into a hyphenated ASCII slug.
//
// # Transformation Pipeline
//
// 1. Removes accents (é → e).
// 2. Lowercases.
// 3. Replaces every run of other characters with a single hyphen and trims the ends.
//
// Labels written only in non-Latin scripts have no ASCII form; they fall back
// to their lowercased, trimmed text so that distinct labels stay distinct.
func From(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	result := strings.Trim(nonAlphanumeric.ReplaceAllString(folded, "-"), "-")
	if result == "" {
		return strings.TrimSpace(folded)
	}
	return result
}
