package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/config"
	"github.com/vylarc/backend/internal/handlers"
	mW "github.com/vylarc/backend/internal/middleware"
	"github.com/vylarc/backend/internal/models"
	"github.com/vylarc/backend/internal/services"
)

const testJWTSecret = "router-secret"

type stubLedger struct{}

func (stubLedger) GetBalance(_ context.Context, accountID string) (models.Account, error) {
	return models.Account{UserID: accountID, Balance: 42}, nil
}

func (stubLedger) EnsureAccount(_ context.Context, userID string) (models.Account, error) {
	return models.Account{UserID: userID}, nil
}

func (stubLedger) Charge(context.Context, string, string) (int64, error) { return 37, nil }

func (stubLedger) Grant(context.Context, services.GrantRequest) (services.GrantResult, error) {
	return services.GrantResult{Balance: 100}, nil
}

func (stubLedger) LogAction(context.Context, string, string, int) error { return nil }

func (stubLedger) ListBillingRecords(context.Context, string, int) ([]models.BillingRecord, error) {
	return []models.BillingRecord{}, nil
}

func (stubLedger) ListActionLogs(context.Context, string, int) ([]models.ActionLog, error) {
	return []models.ActionLog{}, nil
}

type stubGateway struct{}

func (stubGateway) Authenticate(_ context.Context, secret string) error {
	if secret != "hook-secret" {
		return services.ErrWebhookUnauthorized
	}
	return nil
}

func (stubGateway) Ingest(_ context.Context, _ string, _ services.PurchaseEvent) (services.IngestResult, error) {
	return services.IngestResult{Status: services.WebhookStatusGranted}, nil
}

func testRouter() http.Handler {
	ledger := stubLedger{}
	return newRouter(routerDeps{
		webhookHeader: config.DefaultWebhookSecretHeader,
		auth:          mW.NewAuth(testJWTSecret),
		credits:       handlers.NewCreditsHandler(ledger, 0, zap.NewNop()),
		admin:         handlers.NewAdminHandler(ledger, 0, zap.NewNop()),
		webhook:       handlers.NewWebhookHandler(stubGateway{}, ledger, config.DefaultWebhookSecretHeader, zap.NewNop()),
	})
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mW.Claims{
		UserID:           userID,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter(t *testing.T) {
	router := testRouter()
	adminPath := "/api/v1/admin/credits/grant"
	grantBody := `{"user_id":"9b2f3c4e-1a2b-4c3d-8e9f-0a1b2c3d4e5f","credits_added":10}`
	purchase := `{"payer_email":"buyer@example.com","sku":"vylarc_pack_500","order_id":"o-1","amount_paid":4.99}`

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header map[string]string
		status int
	}{
		{"health", http.MethodGet, "/health", "", nil, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", nil, http.StatusOK},
		{"balance needs a session", http.MethodGet, "/api/v1/credits/balance", "", nil, http.StatusUnauthorized},
		{"balance", http.MethodGet, "/api/v1/credits/balance", "", map[string]string{"Authorization": bearer(t, "user-1", "")}, http.StatusOK},
		{"charge", http.MethodPost, "/api/v1/credits/charge", `{"action_type":"CODE_RUN"}`, map[string]string{"Authorization": bearer(t, "user-1", "")}, http.StatusOK},
		{"grant needs admin", http.MethodPost, adminPath, grantBody, map[string]string{"Authorization": bearer(t, "user-1", "")}, http.StatusForbidden},
		{"grant as admin", http.MethodPost, adminPath, grantBody, map[string]string{"Authorization": bearer(t, "op-1", mW.RoleAdmin)}, http.StatusOK},
		{"webhook without session", http.MethodPost, "/api/v1/webhooks/purchase", purchase, map[string]string{config.DefaultWebhookSecretHeader: "hook-secret"}, http.StatusOK},
		{"webhook wrong secret", http.MethodPost, "/api/v1/webhooks/purchase", purchase, map[string]string{config.DefaultWebhookSecretHeader: "nope"}, http.StatusForbidden},
		{"webhook missing secret with bad body", http.MethodPost, "/api/v1/webhooks/purchase", `{"sku":`, nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestJWTSecretKey(t *testing.T) {
	v := viper.New()

	_, err := jwtSecretKey(v)
	assert.Error(t, err)

	v.Set("jwt.secret_key", "   ")
	_, err = jwtSecretKey(v)
	assert.Error(t, err)

	v.Set("jwt.secret_key", "k3y")
	key, err := jwtSecretKey(v)
	require.NoError(t, err)
	assert.Equal(t, "k3y", key)
}
