package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vylarc/backend/internal/models"
	"github.com/vylarc/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// CreditLedger is the slice of the balance engine exposed over HTTP.
type CreditLedger interface {
	GetBalance(ctx context.Context, accountID string) (models.Account, error)
	EnsureAccount(ctx context.Context, userID string) (models.Account, error)
	Charge(ctx context.Context, accountID, actionType string) (int64, error)
	Grant(ctx context.Context, req services.GrantRequest) (services.GrantResult, error)
	LogAction(ctx context.Context, accountID, actionType string, statusCode int) error
	ListBillingRecords(ctx context.Context, accountID string, limit int) ([]models.BillingRecord, error)
	ListActionLogs(ctx context.Context, accountID string, limit int) ([]models.ActionLog, error)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeStrict reads exactly one JSON object with no unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

// statusFor maps ledger errors onto HTTP statuses. It is the only place
// that does so.
func statusFor(err error) (int, string) {
	var insufficient *services.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired, insufficient.Error()
	case errors.Is(err, services.ErrAccountNotFound):
		return http.StatusNotFound, "Credit account not found"
	case errors.Is(err, services.ErrPayerNotFound):
		return http.StatusNotFound, "Payer not found"
	case errors.Is(err, services.ErrWebhookUnauthorized):
		return http.StatusForbidden, "Invalid webhook secret"
	case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrUnknownAction):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrLockContention):
		return http.StatusServiceUnavailable, "Account is busy, try again"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func sendLedgerError(w http.ResponseWriter, err error) int {
	status, msg := statusFor(err)
	services.SendErrorResponse(w, msg, status, nil)
	return status
}
