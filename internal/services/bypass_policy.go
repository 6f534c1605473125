package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// BypassPolicy decides whether an account is exempt from debits. The credit
// service consults it on every chargeable debit; callers never check it
// themselves.
type BypassPolicy interface {
	IsExempt(ctx context.Context, accountID string) (bool, error)
}

// BypassPolicyFunc adapts a plain function to BypassPolicy.
type BypassPolicyFunc func(ctx context.Context, accountID string) (bool, error)

func (f BypassPolicyFunc) IsExempt(ctx context.Context, accountID string) (bool, error) {
	return f(ctx, accountID)
}

// NoBypass exempts nobody.
var NoBypass BypassPolicy = BypassPolicyFunc(func(context.Context, string) (bool, error) {
	return false, nil
})

// EmailBypassPolicy exempts the single identity whose email matches the
// configured admin address.
type EmailBypassPolicy struct {
	db         *sql.DB
	adminEmail string
}

func NewEmailBypassPolicy(db *sql.DB, adminEmail string) *EmailBypassPolicy {
	return &EmailBypassPolicy{
		db:         db,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
	}
}

func (p *EmailBypassPolicy) IsExempt(ctx context.Context, accountID string) (bool, error) {
	if p.adminEmail == "" {
		return false, nil
	}

	var email string
	err := p.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, accountID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup identity %s: %w", accountID, err)
	}
	return strings.EqualFold(strings.TrimSpace(email), p.adminEmail), nil
}
