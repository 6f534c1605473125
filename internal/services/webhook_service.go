package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/audit"
	"github.com/vylarc/backend/internal/metrics"
	"github.com/vylarc/backend/internal/models"
)

// Ingestion statuses reported back to the payment provider
const (
	WebhookStatusGranted   = "granted"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusIgnored   = "ignored"
)

// PurchaseEvent is the payload the payment provider posts for a completed
// order.
type PurchaseEvent struct {
	PayerEmail  string          `json:"payer_email" validate:"required,email"`
	SKU         string          `json:"sku" validate:"required,max=128"`
	OrderID     string          `json:"order_id" validate:"required,max=255"`
	AmountPaid  decimal.Decimal `json:"amount_paid" validate:"gte=0"`
	IsRecurring bool            `json:"is_recurring"`
}

// IngestResult tells the provider what happened to a delivery. Any non error
// result is final and must not be retried by the provider.
type IngestResult struct {
	Status         string `json:"status"`
	CreditsGranted int64  `json:"credits_granted"`
	Balance        int64  `json:"balance"`
}

// granter is the part of the balance engine the gateway needs.
type granter interface {
	Grant(ctx context.Context, req GrantRequest) (GrantResult, error)
}

// WebhookGateway turns authenticated purchase events into idempotent grants.
type WebhookGateway struct {
	db      *sql.DB
	credits granter
	skus    *SKUResolver
	secret  string
	retries int
	audit   Auditor
	logger  *zap.Logger
}

func NewWebhookGateway(db *sql.DB, credits granter, skus *SKUResolver, secret string, retries int, auditor Auditor, logger *zap.Logger) *WebhookGateway {
	return &WebhookGateway{
		db:      db,
		credits: credits,
		skus:    skus,
		secret:  secret,
		retries: retries,
		audit:   auditor,
		logger:  logger.Named("webhook"),
	}
}

// Ingest authenticates the delivery, resolves the payer and product, and
// grants the credits keyed on the provider's order id. Redelivering the same
// order is safe.
func (g *WebhookGateway) Ingest(ctx context.Context, presentedSecret string, evt PurchaseEvent) (IngestResult, error) {
	if err := g.Authenticate(ctx, presentedSecret); err != nil {
		return IngestResult{}, err
	}

	payer, err := g.lookupPayer(ctx, evt.PayerEmail)
	if err != nil {
		if errors.Is(err, ErrPayerNotFound) {
			g.logger.Warn("webhook payer has no identity",
				zap.String("order_id", evt.OrderID),
				zap.String("payer_email", evt.PayerEmail))
			metrics.WebhookEvents.WithLabelValues("payer_not_found").Inc()
		} else {
			metrics.WebhookEvents.WithLabelValues("error").Inc()
		}
		return IngestResult{}, err
	}

	credits, ok := g.skus.Resolve(evt.SKU)
	if !ok {
		g.logger.Info("webhook ignored: unknown sku",
			zap.String("order_id", evt.OrderID),
			zap.String("sku", evt.SKU))
		metrics.WebhookEvents.WithLabelValues(WebhookStatusIgnored).Inc()
		return IngestResult{Status: WebhookStatusIgnored}, nil
	}

	method := models.PaymentMethodWebhook
	if evt.IsRecurring {
		method = models.PaymentMethodWebhookRecurring
	}

	var res GrantResult
	err = WithLockRetry(ctx, g.retries, func() error {
		var err error
		res, err = g.credits.Grant(ctx, GrantRequest{
			AccountID:     payer.ID,
			Credits:       credits,
			AmountPaid:    evt.AmountPaid,
			PaymentMethod: method,
			ExternalTxnID: evt.OrderID,
		})
		return err
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		return IngestResult{}, fmt.Errorf("grant order %s: %w", evt.OrderID, err)
	}

	if res.Duplicate {
		metrics.WebhookEvents.WithLabelValues(WebhookStatusDuplicate).Inc()
		return IngestResult{Status: WebhookStatusDuplicate, Balance: res.Balance}, nil
	}
	metrics.WebhookEvents.WithLabelValues(WebhookStatusGranted).Inc()
	return IngestResult{Status: WebhookStatusGranted, CreditsGranted: credits, Balance: res.Balance}, nil
}

// Authenticate checks the presented shared secret and records a security
// event on mismatch. Callers run it before reading the delivery body. An
// unset secret rejects every delivery.
func (g *WebhookGateway) Authenticate(ctx context.Context, presented string) error {
	if g.secret != "" && presented != "" &&
		subtle.ConstantTimeCompare([]byte(presented), []byte(g.secret)) == 1 {
		return nil
	}

	g.logger.Warn("webhook rejected: bad shared secret", zap.Bool("secret_present", presented != ""))
	g.audit.LogSecurityEvent(ctx, audit.EventWebhookReject, map[string]string{
		"reason": "secret_mismatch",
	})
	metrics.WebhookEvents.WithLabelValues("unauthorized").Inc()
	return ErrWebhookUnauthorized
}

func (g *WebhookGateway) lookupPayer(ctx context.Context, email string) (models.User, error) {
	var payer models.User
	err := g.db.QueryRowContext(ctx, `
		SELECT id, email
		FROM users
		WHERE LOWER(email) = $1`,
		strings.ToLower(strings.TrimSpace(email))).Scan(&payer.ID, &payer.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: %s", ErrPayerNotFound, email)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("lookup payer: %w", err)
	}
	return payer, nil
}
