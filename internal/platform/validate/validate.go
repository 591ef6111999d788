// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate collects field errors of a record submission and reports
// them together as one VALIDATION_ERROR.
//
// Rules are chained and never stop early, so a client sees every problem of a
// form at once:
//
//	err := (&validate.Validator{}).
//		Required("title", title).
//		MaxLen("title", title, 500).
//		Min("chapterProgress", progress, 0).
//		Err()
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/manhwaty/internal/platform/apperr"
)

// ErrInvalidJSON is returned when a request body is not valid JSON.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// Validator accumulates [apperr.FieldError] values. The zero value is ready to
// use; it is not safe for concurrent use.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails when value is blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails when value has more than max characters (runes, not bytes).
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// Min fails when value is below min.
func (v *Validator) Min(field string, value, min int) *Validator {
	if value < min {
		v.add(field, fmt.Sprintf("Must be at least %d", min))
	}
	return v
}

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Err ends the chain: nil when every rule passed, otherwise a VALIDATION_ERROR
// listing each failure.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
