package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogBypass(ctx context.Context, accountID, actionType string, cost int64) {
	m.Called(accountID, actionType, cost)
}

func (m *MockAuditor) LogGrant(ctx context.Context, accountID, transactionID string, credits int64, paymentMethod string, duplicate bool) {
	m.Called(accountID, transactionID, credits, paymentMethod, duplicate)
}

func (m *MockAuditor) LogSecurityEvent(ctx context.Context, eventType string, details map[string]string) {
	m.Called(eventType, details)
}

func (m *MockAuditor) LogAccountMissing(ctx context.Context, accountID, actionType string, cost int64) {
	m.Called(accountID, actionType, cost)
}

type MockGranter struct {
	mock.Mock
}

func (m *MockGranter) Grant(ctx context.Context, req GrantRequest) (GrantResult, error) {
	args := m.Called(req)
	return args.Get(0).(GrantResult), args.Error(1)
}
