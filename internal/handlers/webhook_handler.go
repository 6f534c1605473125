package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/services"
)

// ActionWebhookPurchase is the action log entry written for every
// authenticated delivery.
const ActionWebhookPurchase = "WEBHOOK_PURCHASE"

type PurchaseIngester interface {
	Authenticate(ctx context.Context, presentedSecret string) error
	Ingest(ctx context.Context, presentedSecret string, evt services.PurchaseEvent) (services.IngestResult, error)
}

type actionLogger interface {
	LogAction(ctx context.Context, accountID, actionType string, statusCode int) error
}

type WebhookHandler struct {
	gateway      PurchaseIngester
	actions      actionLogger
	secretHeader string
	validator    *services.ValidationHelper
	logger       *zap.Logger
}

func NewWebhookHandler(gateway PurchaseIngester, actions actionLogger, secretHeader string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		gateway:      gateway,
		actions:      actions,
		secretHeader: secretHeader,
		validator:    services.NewValidationHelper(),
		logger:       logger.Named("http"),
	}
}

// Purchase ingests a completed order from the payment provider
// @Summary Purchase webhook
// @Description Grants the credits of a purchased SKU. Redelivery of an order_id is acknowledged as duplicate.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Vylarc-Webhook-Secret header string true "Shared secret"
// @Param request body services.PurchaseEvent true "Purchase event"
// @Success 200 {object} services.IngestResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /webhooks/purchase [post]
func (h *WebhookHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(h.secretHeader)
	if err := h.gateway.Authenticate(r.Context(), secret); err != nil {
		sendLedgerError(w, err)
		return
	}

	status := h.purchase(w, r, secret)
	if err := h.actions.LogAction(r.Context(), "", ActionWebhookPurchase, status); err != nil {
		h.logger.Warn("record webhook delivery", zap.Int("status", status), zap.Error(err))
	}
}

func (h *WebhookHandler) purchase(w http.ResponseWriter, r *http.Request, secret string) int {
	// Providers add fields over time, so unknown fields are tolerated here.
	var evt services.PurchaseEvent
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return http.StatusBadRequest
	}
	if err := h.validator.ValidateStruct(&evt); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return http.StatusBadRequest
	}

	res, err := h.gateway.Ingest(r.Context(), secret, evt)
	if err != nil {
		status := sendLedgerError(w, err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook ingestion failed", zap.String("order_id", evt.OrderID), zap.Error(err))
		}
		return status
	}

	respondJSON(w, http.StatusOK, res)
	return http.StatusOK
}
