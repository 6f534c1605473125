package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the credit balance owned by one user. Balance never goes
// negative at a commit point.
type Account struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Balance   int64     `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BillingRecord is an append-only log of credits added to an account.
// TransactionID is the external idempotency key and is unique when set.
type BillingRecord struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	CreditsAdded  int64           `json:"credits_added" db:"credits_added"`
	AmountPaid    decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	TransactionID *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
}

// ActionLog records one metered action. UserID is nil for system actions.
type ActionLog struct {
	ID             string    `json:"id" db:"id"`
	UserID         *string   `json:"user_id,omitempty" db:"user_id"`
	ActionType     string    `json:"action_type" db:"action_type"`
	CreditsCharged int64     `json:"credits_charged" db:"credits_charged"`
	StatusCode     *int      `json:"status_code,omitempty" db:"status_code"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
}

// Payment methods written to billing_records.payment_method
const (
	PaymentMethodManual           = "Manual"
	PaymentMethodAdminCommand     = "Admin Command"
	PaymentMethodWebhook          = "Webhook"
	PaymentMethodWebhookRecurring = "Webhook (Recurring)"
)

// NullString maps an empty string to SQL NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// StringPtr converts a scanned nullable column back to an optional field.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
