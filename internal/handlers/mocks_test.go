package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vylarc/backend/internal/models"
	"github.com/vylarc/backend/internal/services"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetBalance(ctx context.Context, accountID string) (models.Account, error) {
	args := m.Called(accountID)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockLedger) EnsureAccount(ctx context.Context, userID string) (models.Account, error) {
	args := m.Called(userID)
	return args.Get(0).(models.Account), args.Error(1)
}

func (m *MockLedger) Charge(ctx context.Context, accountID, actionType string) (int64, error) {
	args := m.Called(accountID, actionType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Grant(ctx context.Context, req services.GrantRequest) (services.GrantResult, error) {
	args := m.Called(req)
	return args.Get(0).(services.GrantResult), args.Error(1)
}

func (m *MockLedger) LogAction(ctx context.Context, accountID, actionType string, statusCode int) error {
	args := m.Called(accountID, actionType, statusCode)
	return args.Error(0)
}

func (m *MockLedger) ListBillingRecords(ctx context.Context, accountID string, limit int) ([]models.BillingRecord, error) {
	args := m.Called(accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BillingRecord), args.Error(1)
}

func (m *MockLedger) ListActionLogs(ctx context.Context, accountID string, limit int) ([]models.ActionLog, error) {
	args := m.Called(accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActionLog), args.Error(1)
}

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) Ingest(ctx context.Context, presentedSecret string, evt services.PurchaseEvent) (services.IngestResult, error) {
	args := m.Called(presentedSecret, evt)
	return args.Get(0).(services.IngestResult), args.Error(1)
}

func (m *MockIngester) Authenticate(ctx context.Context, presentedSecret string) error {
	args := m.Called(presentedSecret)
	return args.Error(0)
}
