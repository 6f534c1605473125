package services

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrAccountNotFound means an identity has no credit account. On debit it
	// indicates a provisioning bug; balance reads never return it.
	ErrAccountNotFound = errors.New("credit account not found")
	// ErrInsufficientFunds is matched by every *InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient credits")
	ErrInvalidAmount     = errors.New("invalid credit amount")
	ErrUnknownAction     = errors.New("unknown action type")
	// ErrLockContention wraps lock timeouts, deadlocks and serialization
	// failures. Callers may retry it a bounded number of times.
	ErrLockContention = errors.New("credit account is busy")

	ErrWebhookUnauthorized = errors.New("webhook shared secret mismatch")
	ErrPayerNotFound       = errors.New("payer identity not found")
)

// InsufficientFundsError reports the cost of the refused action and the
// balance that was available under the lock.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient credits: this action costs %d credits, but only %d are available", e.Required, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Postgres SQLSTATE codes the ledger reacts to
const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// classifyDBError maps transient locking failures onto ErrLockContention and
// leaves everything else untouched.
func classifyDBError(err error) error {
	switch pqCode(err) {
	case pqLockNotAvailable, pqDeadlockDetected, pqSerializationFailure:
		return fmt.Errorf("%w: %v", ErrLockContention, err)
	}
	return err
}
