// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/manhwaty/internal/platform/apperr"
	"github.com/taibuivan/manhwaty/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "title", "Solo Leveling", false},
		{"empty_string", "title", "", true},
		{"whitespace_only", "title", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_MaxLen counts characters rather than bytes.
*/
func TestValidator_MaxLen(t *testing.T) {
	assert.False(t, (&validate.Validator{}).MaxLen("title", "나 혼자만 레벨업", 9).HasErrors())
	assert.True(t, (&validate.Validator{}).MaxLen("title", "나 혼자만 레벨업", 8).HasErrors())
}

/*
TestValidator_Min checks the lower bound rule used for chapter progress.
*/
func TestValidator_Min(t *testing.T) {
	assert.False(t, (&validate.Validator{}).Min("chapter_progress", 0, 0).HasErrors())
	assert.False(t, (&validate.Validator{}).Min("chapter_progress", 12, 0).HasErrors())
	assert.True(t, (&validate.Validator{}).Min("chapter_progress", -1, 0).HasErrors())
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("title", "Tower of God").
		MaxLen("title", "Tower of God", 500).
		Min("chapter_progress", 10, 0).
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("title", "").           // Fails
		MaxLen("category", "abcdef", 3). // Fails
		Min("chapter_progress", -1, 0).  // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}
