package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestInsufficientFundsError(t *testing.T) {
	err := fmt.Errorf("debit: %w", &InsufficientFundsError{Required: 50, Available: 49})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Contains(t, err.Error(), "costs 50 credits")
	assert.Contains(t, err.Error(), "only 49 are available")
}

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		contention bool
	}{
		{"lock timeout", &pq.Error{Code: "55P03"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"check violation", &pq.Error{Code: "23514"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyDBError(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.contention, errors.Is(err, ErrLockContention))
		})
	}
}
