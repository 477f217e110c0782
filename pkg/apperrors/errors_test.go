package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCyclicBOMError(t *testing.T) {
	err := fmt.Errorf("branch B: %w", &CyclicBOMError{Chain: []string{"A", "B", "A"}})

	assert.True(t, errors.Is(err, ErrCyclicBOM))
	assert.Contains(t, err.Error(), "A -> B -> A")

	var cyc *CyclicBOMError
	assert.True(t, errors.As(err, &cyc))
	assert.Equal(t, []string{"A", "B", "A"}, cyc.Chain)
}

func TestIsBranchRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", fmt.Errorf("bom X: %w", ErrNotFound), true},
		{"division by zero", ErrDivisionByZero, true},
		{"cycle", &CyclicBOMError{Chain: []string{"A", "A"}}, true},
		{"capacity exhausted", ErrCapacityExhausted, true},
		{"capacity not configured", ErrCapacityNotConfigured, false},
		{"storage", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBranchRecoverable(tt.err))
		})
	}
}
