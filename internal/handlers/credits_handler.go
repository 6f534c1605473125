package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/middleware"
	"github.com/vylarc/backend/internal/models"
	"github.com/vylarc/backend/internal/services"
)

type CreditsHandler struct {
	ledger    CreditLedger
	retries   int
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewCreditsHandler(ledger CreditLedger, retries int, logger *zap.Logger) *CreditsHandler {
	return &CreditsHandler{
		ledger:    ledger,
		retries:   retries,
		validator: services.NewValidationHelper(),
		logger:    logger.Named("http"),
	}
}

type BalanceResponse struct {
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HistoryResponse struct {
	BillingRecords []models.BillingRecord `json:"billing_records"`
	ActionLogs     []models.ActionLog     `json:"action_logs"`
}

type ChargeRequest struct {
	ActionType string `json:"action_type" validate:"required,max=128"`
}

type ChargeResponse struct {
	ActionType string `json:"action_type"`
	Balance    int64  `json:"balance"`
}

// GetBalance returns the caller's credit balance
// @Summary Get credit balance
// @Description Returns the caller's balance. Identities without an account read as zero.
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /credits/balance [get]
func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	acct, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		h.logger.Error("get balance", zap.String("user_id", userID), zap.Error(err))
		sendLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, BalanceResponse{Balance: acct.Balance, UpdatedAt: acct.UpdatedAt})
}

// GetHistory lists recent purchases and charged actions
// @Summary Credit history
// @Description Newest billing records and action logs of the caller
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Entries per list (1-100)"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /credits/history [get]
func (h *CreditsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			services.SendErrorResponse(w, "limit must be between 1 and 100", http.StatusBadRequest, nil)
			return
		}
		limit = n
	}

	records, err := h.ledger.ListBillingRecords(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list billing records", zap.String("user_id", userID), zap.Error(err))
		sendLedgerError(w, err)
		return
	}
	logs, err := h.ledger.ListActionLogs(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list action logs", zap.String("user_id", userID), zap.Error(err))
		sendLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{BillingRecords: records, ActionLogs: logs})
}

// Charge debits the cost of a metered action
// @Summary Charge an action
// @Description Debits the configured cost of action_type from the caller
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChargeRequest true "Action to charge"
// @Success 200 {object} ChargeResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /credits/charge [post]
func (h *CreditsHandler) Charge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ChargeRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	actionType := strings.ToUpper(strings.TrimSpace(req.ActionType))

	var balance int64
	err := services.WithLockRetry(r.Context(), h.retries, func() error {
		var err error
		balance, err = h.ledger.Charge(r.Context(), userID, actionType)
		return err
	})
	if err != nil {
		sendLedgerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ChargeResponse{ActionType: actionType, Balance: balance})
}
