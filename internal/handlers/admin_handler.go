package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/models"
	"github.com/vylarc/backend/internal/services"
)

type AdminHandler struct {
	ledger    CreditLedger
	retries   int
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewAdminHandler(ledger CreditLedger, retries int, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		retries:   retries,
		validator: services.NewValidationHelper(),
		logger:    logger.Named("http"),
	}
}

type GrantCreditsRequest struct {
	UserID        string          `json:"user_id" validate:"required,uuid"`
	CreditsAdded  int64           `json:"credits_added" validate:"required,gt=0"`
	AmountPaid    decimal.Decimal `json:"amount_paid" validate:"gte=0"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=64"`
	TransactionID string          `json:"transaction_id" validate:"omitempty,max=255"`
}

type GrantCreditsResponse struct {
	UserID    string `json:"user_id"`
	Balance   int64  `json:"balance"`
	Duplicate bool   `json:"duplicate"`
}

// GrantCredits adds credits on behalf of an operator
// @Summary Grant credits
// @Description Adds credits to any account. A repeated transaction_id is a no-op.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GrantCreditsRequest true "Grant request"
// @Success 200 {object} GrantCreditsResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/credits/grant [post]
func (h *AdminHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req GrantCreditsRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodAdminCommand
	}

	var res services.GrantResult
	err := services.WithLockRetry(r.Context(), h.retries, func() error {
		var err error
		res, err = h.ledger.Grant(r.Context(), services.GrantRequest{
			AccountID:     req.UserID,
			Credits:       req.CreditsAdded,
			AmountPaid:    req.AmountPaid,
			PaymentMethod: method,
			ExternalTxnID: req.TransactionID,
		})
		return err
	})
	if err != nil {
		status := sendLedgerError(w, err)
		h.logger.Warn("admin grant failed",
			zap.String("user_id", req.UserID),
			zap.Int("status", status),
			zap.Error(err))
		return
	}

	respondJSON(w, http.StatusOK, GrantCreditsResponse{UserID: req.UserID, Balance: res.Balance, Duplicate: res.Duplicate})
}

// EnsureAccount provisions the credit account of an existing identity
// @Summary Provision credit account
// @Description Creates a zero balance account if the identity has none. Existing balances are untouched.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "Identity id"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/credits/accounts/{userID} [post]
func (h *AdminHandler) EnsureAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		services.SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	acct, err := h.ledger.EnsureAccount(r.Context(), userID)
	if err != nil {
		status := sendLedgerError(w, err)
		h.logger.Warn("ensure account failed", zap.String("user_id", userID), zap.Int("status", status), zap.Error(err))
		return
	}

	respondJSON(w, http.StatusOK, acct)
}
