package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/config"
	"github.com/vylarc/backend/internal/services"
)

const purchaseBody = `{"payer_email":"buyer@example.com","sku":"vylarc_pack_2000","order_id":"order-1","amount_paid":19.99,"is_recurring":false,"provider_extra":"x"}`

func purchaseRequest(body, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/purchase", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(config.DefaultWebhookSecretHeader, secret)
	}
	return req
}

func TestWebhookHandler_Purchase(t *testing.T) {
	expectedEvent := services.PurchaseEvent{
		PayerEmail: "buyer@example.com",
		SKU:        "vylarc_pack_2000",
		OrderID:    "order-1",
		AmountPaid: decimal.RequireFromString("19.99"),
	}

	tests := []struct {
		name   string
		result services.IngestResult
		err    error
		status int
	}{
		{"granted", services.IngestResult{Status: services.WebhookStatusGranted, CreditsGranted: 2000, Balance: 2000}, nil, http.StatusOK},
		{"duplicate", services.IngestResult{Status: services.WebhookStatusDuplicate, Balance: 2000}, nil, http.StatusOK},
		{"ignored sku", services.IngestResult{Status: services.WebhookStatusIgnored}, nil, http.StatusOK},
		{"unknown payer", services.IngestResult{}, services.ErrPayerNotFound, http.StatusNotFound},
		{"store failure", services.IngestResult{}, errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &MockIngester{}
			ledger := &MockLedger{}
			gateway.On("Authenticate", "s3cret").Return(nil).Once()
			gateway.On("Ingest", "s3cret", mock.MatchedBy(func(evt services.PurchaseEvent) bool {
				return evt.OrderID == expectedEvent.OrderID &&
					evt.SKU == expectedEvent.SKU &&
					evt.AmountPaid.Equal(expectedEvent.AmountPaid)
			})).Return(tt.result, tt.err).Once()
			ledger.On("LogAction", "", ActionWebhookPurchase, tt.status).Return(nil).Once()

			h := NewWebhookHandler(gateway, ledger, config.DefaultWebhookSecretHeader, zap.NewNop())
			w := httptest.NewRecorder()
			h.Purchase(w, purchaseRequest(purchaseBody, "s3cret"))

			assert.Equal(t, tt.status, w.Code)
			if tt.err == nil {
				var resp services.IngestResult
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.result, resp)
			}
			gateway.AssertExpectations(t)
			ledger.AssertExpectations(t)
		})
	}

	t.Run("malformed payload", func(t *testing.T) {
		gateway := &MockIngester{}
		ledger := &MockLedger{}
		gateway.On("Authenticate", "s3cret").Return(nil).Once()
		ledger.On("LogAction", "", ActionWebhookPurchase, http.StatusBadRequest).Return(nil).Once()

		h := NewWebhookHandler(gateway, ledger, config.DefaultWebhookSecretHeader, zap.NewNop())
		w := httptest.NewRecorder()
		h.Purchase(w, purchaseRequest(`{"payer_email":"buyer@example.com"}`, "s3cret"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		gateway.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
	})

	t.Run("action log failure does not change the response", func(t *testing.T) {
		gateway := &MockIngester{}
		ledger := &MockLedger{}
		gateway.On("Authenticate", "s3cret").Return(nil)
		gateway.On("Ingest", "s3cret", mock.Anything).Return(services.IngestResult{Status: services.WebhookStatusGranted}, nil)
		ledger.On("LogAction", "", ActionWebhookPurchase, http.StatusOK).Return(errors.New("disk full"))

		h := NewWebhookHandler(gateway, ledger, config.DefaultWebhookSecretHeader, zap.NewNop())
		w := httptest.NewRecorder()
		h.Purchase(w, purchaseRequest(purchaseBody, "s3cret"))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	rejected := []struct {
		name   string
		secret string
		body   string
	}{
		{"missing secret with malformed body", "", `{"payer_email":"x"}`},
		{"wrong secret with valid body", "guess", purchaseBody},
		{"wrong secret with broken json", "guess", `{"payer_email":`},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &MockIngester{}
			ledger := &MockLedger{}
			gateway.On("Authenticate", tt.secret).Return(services.ErrWebhookUnauthorized).Once()

			h := NewWebhookHandler(gateway, ledger, config.DefaultWebhookSecretHeader, zap.NewNop())
			w := httptest.NewRecorder()
			h.Purchase(w, purchaseRequest(tt.body, tt.secret))

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.NotContains(t, w.Body.String(), "details")
			gateway.AssertExpectations(t)
			gateway.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
			ledger.AssertNotCalled(t, "LogAction", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}
