package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	err := NewStateError("unit is not completed")

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "unit is not completed", err.Error())

	wrapped := fmt.Errorf("transfer: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidState))
}

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		validation bool
		conflict   bool
	}{
		{"validation", NewValidationError("quantity must be positive"), true, false},
		{"invalid input", ErrInvalidInput, true, false},
		{"referential", ErrReferentialConflict, false, true},
		{"concurrency", fmt.Errorf("save: %w", ErrConcurrencyConflict), false, true},
		{"duplicate document", ErrDuplicateDocument, false, true},
		{"state", ErrInvalidState, false, false},
		{"plain", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
		})
	}
}
