package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/middleware"
	"github.com/vylarc/backend/internal/models"
	"github.com/vylarc/backend/internal/services"
)

func authedRequest(method, target, body, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	return req
}

func TestCreditsHandler_GetBalance(t *testing.T) {
	t.Run("returns balance", func(t *testing.T) {
		ledger := &MockLedger{}
		updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ledger.On("GetBalance", "user-1").Return(models.Account{UserID: "user-1", Balance: 75, UpdatedAt: updated}, nil)

		h := NewCreditsHandler(ledger, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.GetBalance(w, authedRequest(http.MethodGet, "/credits/balance", "", "user-1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp BalanceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(75), resp.Balance)
		assert.True(t, updated.Equal(resp.UpdatedAt))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := NewCreditsHandler(&MockLedger{}, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.GetBalance(w, authedRequest(http.MethodGet, "/credits/balance", "", ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCreditsHandler_Charge(t *testing.T) {
	t.Run("charges normalized action", func(t *testing.T) {
		ledger := &MockLedger{}
		ledger.On("Charge", "user-1", "CODE_RUN").Return(int64(95), nil).Once()

		h := NewCreditsHandler(ledger, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.Charge(w, authedRequest(http.MethodPost, "/credits/charge", `{"action_type":" code_run "}`, "user-1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ChargeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(95), resp.Balance)
		ledger.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient funds", &services.InsufficientFundsError{Required: 50, Available: 49}, http.StatusPaymentRequired},
		{"missing account", fmt.Errorf("%w: user-1", services.ErrAccountNotFound), http.StatusNotFound},
		{"unknown action", fmt.Errorf("%w: TELEPORT", services.ErrUnknownAction), http.StatusBadRequest},
		{"contention", fmt.Errorf("%w: lock timeout", services.ErrLockContention), http.StatusServiceUnavailable},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &MockLedger{}
			ledger.On("Charge", "user-1", "CODE_RUN").Return(int64(0), tt.err)

			h := NewCreditsHandler(ledger, 0, zap.NewNop())
			w := httptest.NewRecorder()
			h.Charge(w, authedRequest(http.MethodPost, "/credits/charge", `{"action_type":"CODE_RUN"}`, "user-1"))

			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("insufficient funds message names both amounts", func(t *testing.T) {
		ledger := &MockLedger{}
		ledger.On("Charge", "user-1", "CODE_GENERATE").Return(int64(0), &services.InsufficientFundsError{Required: 50, Available: 49})

		h := NewCreditsHandler(ledger, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.Charge(w, authedRequest(http.MethodPost, "/credits/charge", `{"action_type":"CODE_GENERATE"}`, "user-1"))

		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "50")
		assert.Contains(t, resp.Error, "49")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		ledger := &MockLedger{}
		h := NewCreditsHandler(ledger, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.Charge(w, authedRequest(http.MethodPost, "/credits/charge", `{"action_type":"CODE_RUN","cost":0}`, "user-1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		ledger.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	})

	t.Run("missing action type", func(t *testing.T) {
		h := NewCreditsHandler(&MockLedger{}, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.Charge(w, authedRequest(http.MethodPost, "/credits/charge", `{}`, "user-1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp services.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "action_type")
	})
}

func TestCreditsHandler_GetHistory(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		ledger := &MockLedger{}
		txn := "order-1"
		ledger.On("ListBillingRecords", "user-1", 20).Return([]models.BillingRecord{{ID: "b1", UserID: "user-1", CreditsAdded: 500, TransactionID: &txn}}, nil)
		ledger.On("ListActionLogs", "user-1", 20).Return([]models.ActionLog{{ID: "a1", ActionType: "CODE_RUN", CreditsCharged: 5}}, nil)

		h := NewCreditsHandler(ledger, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.GetHistory(w, authedRequest(http.MethodGet, "/credits/history", "", "user-1"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp HistoryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.BillingRecords, 1)
		assert.Len(t, resp.ActionLogs, 1)
	})

	t.Run("custom limit", func(t *testing.T) {
		ledger := &MockLedger{}
		ledger.On("ListBillingRecords", "user-1", 5).Return([]models.BillingRecord{}, nil)
		ledger.On("ListActionLogs", "user-1", 5).Return([]models.ActionLog{}, nil)

		h := NewCreditsHandler(ledger, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.GetHistory(w, authedRequest(http.MethodGet, "/credits/history?limit=5", "", "user-1"))

		assert.Equal(t, http.StatusOK, w.Code)
		ledger.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		h := NewCreditsHandler(&MockLedger{}, 0, zap.NewNop())
		w := httptest.NewRecorder()
		h.GetHistory(w, authedRequest(http.MethodGet, "/credits/history?limit=500", "", "user-1"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
