package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vylarc/backend/internal/config"
	"github.com/vylarc/backend/internal/metrics"
	"github.com/vylarc/backend/internal/models"
)

// Auditor receives the ledger's audit trail.
type Auditor interface {
	LogBypass(ctx context.Context, accountID, actionType string, cost int64)
	LogGrant(ctx context.Context, accountID, transactionID string, credits int64, paymentMethod string, duplicate bool)
	LogSecurityEvent(ctx context.Context, eventType string, details map[string]string)
	LogAccountMissing(ctx context.Context, accountID, actionType string, cost int64)
}

// CreditService is the balance engine. The user_credits row is the only
// source of truth for a balance; every mutation runs in one transaction that
// holds that row's lock.
type CreditService struct {
	db     *sql.DB
	cfg    *config.CreditsConfig
	policy BypassPolicy
	audit  Auditor
	logger *zap.Logger
}

func NewCreditService(db *sql.DB, cfg *config.CreditsConfig, policy BypassPolicy, auditor Auditor, logger *zap.Logger) *CreditService {
	if policy == nil {
		policy = NoBypass
	}
	return &CreditService{
		db:     db,
		cfg:    cfg,
		policy: policy,
		audit:  auditor,
		logger: logger.Named("credits"),
	}
}

// GrantRequest describes credits added by a purchase or an operator.
// ExternalTxnID is the idempotency key; empty means no deduplication.
type GrantRequest struct {
	AccountID     string
	Credits       int64
	AmountPaid    decimal.Decimal
	PaymentMethod string
	ExternalTxnID string
}

// GrantResult is the balance after a grant. Duplicate reports a replayed
// ExternalTxnID that changed nothing.
type GrantResult struct {
	Balance   int64
	Duplicate bool
	Created   bool
	RecordID  string
}

// Debit charges cost credits to accountID for actionType and returns the new
// balance. It fails with *InsufficientFundsError when the balance under the
// row lock is below cost and with ErrAccountNotFound when the account row is
// missing.
func (s *CreditService) Debit(ctx context.Context, accountID string, cost int64, actionType string) (int64, error) {
	if cost < 0 {
		return 0, fmt.Errorf("%w: cost %d", ErrInvalidAmount, cost)
	}

	// Exemption does not depend on cost.
	exempt, err := s.policy.IsExempt(ctx, accountID)
	if err != nil {
		metrics.CreditDebits.WithLabelValues(metrics.ResultError).Inc()
		return 0, fmt.Errorf("bypass policy: %w", err)
	}
	if exempt {
		return s.bypass(ctx, accountID, cost, actionType)
	}

	if cost == 0 {
		s.logger.Debug("free action", zap.String("account_id", accountID), zap.String("action", actionType))
		balance, _, err := s.readBalance(ctx, accountID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, s.accountMissing(ctx, accountID, actionType, cost)
		}
		if err != nil {
			metrics.CreditDebits.WithLabelValues(metrics.ResultError).Inc()
			return 0, fmt.Errorf("read balance: %w", err)
		}
		metrics.CreditDebits.WithLabelValues(metrics.ResultOK).Inc()
		return balance, nil
	}

	balance, err := s.debitLocked(ctx, accountID, cost, actionType)
	switch {
	case err == nil:
		metrics.CreditDebits.WithLabelValues(metrics.ResultOK).Inc()
	case errors.Is(err, ErrInsufficientFunds):
		metrics.CreditDebits.WithLabelValues(metrics.ResultInsufficient).Inc()
	case errors.Is(err, ErrAccountNotFound):
		// counted in accountMissing
	case errors.Is(err, ErrLockContention):
		metrics.CreditDebits.WithLabelValues(metrics.ResultContention).Inc()
	default:
		metrics.CreditDebits.WithLabelValues(metrics.ResultError).Inc()
	}
	return balance, err
}

func (s *CreditService) bypass(ctx context.Context, accountID string, cost int64, actionType string) (int64, error) {
	balance, _, err := s.readBalance(ctx, accountID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read balance: %w", err)
	}

	s.logger.Info("debit bypassed for exempt account",
		zap.String("account_id", accountID),
		zap.String("action", actionType),
		zap.Int64("cost", cost))
	s.audit.LogBypass(ctx, accountID, actionType, cost)
	metrics.CreditBypass.WithLabelValues(actionType).Inc()
	return balance, nil
}

func (s *CreditService) debitLocked(ctx context.Context, accountID string, cost int64, actionType string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin debit: %w", err)
	}
	defer tx.Rollback()

	if err := s.setLockTimeout(ctx, tx); err != nil {
		return 0, err
	}

	start := time.Now()
	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance
		FROM user_credits
		WHERE user_id = $1
		FOR UPDATE`, accountID).Scan(&balance)
	metrics.LockWait.Observe(time.Since(start).Seconds())
	if errors.Is(err, sql.ErrNoRows) {
		return 0, s.accountMissing(ctx, accountID, actionType, cost)
	}
	if err != nil {
		return 0, fmt.Errorf("lock account %s: %w", accountID, classifyDBError(err))
	}

	if balance < cost {
		s.logger.Warn("insufficient credits",
			zap.String("account_id", accountID),
			zap.String("action", actionType),
			zap.Int64("required", cost),
			zap.Int64("available", balance))
		return 0, &InsufficientFundsError{Required: cost, Available: balance}
	}

	newBalance := balance - cost
	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_credits
		SET balance = $1, updated_at = $2
		WHERE user_id = $3`,
		newBalance, now, accountID); err != nil {
		return 0, fmt.Errorf("update balance: %w", classifyDBError(err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO action_logs (id, user_id, action_type, credits_charged, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), accountID, actionType, cost, now); err != nil {
		return 0, fmt.Errorf("append action log: %w", classifyDBError(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit debit: %w", classifyDBError(err))
	}

	s.logger.Info("credits charged",
		zap.String("account_id", accountID),
		zap.String("action", actionType),
		zap.Int64("cost", cost),
		zap.Int64("balance", newBalance))
	return newBalance, nil
}

func (s *CreditService) accountMissing(ctx context.Context, accountID, actionType string, cost int64) error {
	s.logger.Error("debit against identity without credit account",
		zap.String("account_id", accountID),
		zap.String("action", actionType),
		zap.Int64("cost", cost))
	s.audit.LogAccountMissing(ctx, accountID, actionType, cost)
	metrics.CreditDebits.WithLabelValues(metrics.ResultNotFound).Inc()
	return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
}

// Charge debits the configured static cost of actionType.
func (s *CreditService) Charge(ctx context.Context, accountID, actionType string) (int64, error) {
	cost, ok := s.cfg.ActionCosts[actionType]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAction, actionType)
	}
	return s.Debit(ctx, accountID, cost, actionType)
}

// Grant adds credits and appends the billing record in one transaction. A
// replayed ExternalTxnID is a no-op that returns the current balance. A
// missing account row is created with the granted balance.
func (s *CreditService) Grant(ctx context.Context, req GrantRequest) (GrantResult, error) {
	if req.Credits <= 0 {
		return GrantResult{}, fmt.Errorf("%w: credits %d", ErrInvalidAmount, req.Credits)
	}
	if req.AmountPaid.IsNegative() {
		return GrantResult{}, fmt.Errorf("%w: amount paid %s", ErrInvalidAmount, req.AmountPaid)
	}

	res, err := s.grant(ctx, req)
	switch {
	case err != nil:
		metrics.CreditGrants.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Error("grant failed",
			zap.String("account_id", req.AccountID),
			zap.String("transaction_id", req.ExternalTxnID),
			zap.Error(err))
		return GrantResult{}, err
	case res.Duplicate:
		metrics.CreditGrants.WithLabelValues(metrics.ResultDuplicate).Inc()
		s.logger.Info("duplicate grant ignored",
			zap.String("account_id", req.AccountID),
			zap.String("transaction_id", req.ExternalTxnID))
	default:
		metrics.CreditGrants.WithLabelValues(metrics.ResultOK).Inc()
		s.logger.Info("credits granted",
			zap.String("account_id", req.AccountID),
			zap.String("transaction_id", req.ExternalTxnID),
			zap.Int64("credits", req.Credits),
			zap.Int64("balance", res.Balance),
			zap.Bool("account_created", res.Created))
	}
	s.audit.LogGrant(ctx, req.AccountID, req.ExternalTxnID, req.Credits, req.PaymentMethod, res.Duplicate)
	return res, nil
}

func (s *CreditService) grant(ctx context.Context, req GrantRequest) (GrantResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return GrantResult{}, fmt.Errorf("begin grant: %w", err)
	}
	defer tx.Rollback()

	if err := s.setLockTimeout(ctx, tx); err != nil {
		return GrantResult{}, err
	}

	now := time.Now().UTC()
	recordID := uuid.NewString()

	// The unique index on transaction_id serializes concurrent deliveries of
	// the same external id: the loser waits for the winner and inserts nothing.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO billing_records (id, user_id, credits_added, amount_paid, payment_method, transaction_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (transaction_id) DO NOTHING`,
		recordID, req.AccountID, req.Credits, req.AmountPaid, models.NullString(req.PaymentMethod),
		models.NullString(req.ExternalTxnID), now)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return GrantResult{}, fmt.Errorf("%w: %s", ErrAccountNotFound, req.AccountID)
		}
		return GrantResult{}, fmt.Errorf("append billing record: %w", classifyDBError(err))
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return GrantResult{}, fmt.Errorf("append billing record: %w", err)
	}

	if inserted == 0 {
		balance, _, err := readBalance(ctx, tx, req.AccountID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return GrantResult{}, fmt.Errorf("read balance: %w", err)
		}
		return GrantResult{Balance: balance, Duplicate: true}, nil
	}

	// One statement both creates a missing account and locks an existing one.
	var res GrantResult
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_credits (user_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = user_credits.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
		RETURNING balance, (xmax = 0) AS created`,
		req.AccountID, req.Credits, now).Scan(&res.Balance, &res.Created)
	if err != nil {
		return GrantResult{}, fmt.Errorf("credit account: %w", classifyDBError(err))
	}

	if err := tx.Commit(); err != nil {
		return GrantResult{}, fmt.Errorf("commit grant: %w", classifyDBError(err))
	}

	res.RecordID = recordID
	return res, nil
}

// GetBalance returns the account balance, or a zero balance when the
// identity has never been provisioned.
func (s *CreditService) GetBalance(ctx context.Context, accountID string) (models.Account, error) {
	balance, updatedAt, err := s.readBalance(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{UserID: accountID}, nil
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("read balance: %w", err)
	}
	return models.Account{UserID: accountID, Balance: balance, UpdatedAt: updatedAt}, nil
}

// ProvisionAccount creates the zero balance row for a new identity inside the
// caller's registration transaction.
func (s *CreditService) ProvisionAccount(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, time.Now().UTC())
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("%w: no identity %s", ErrAccountNotFound, userID)
		}
		return fmt.Errorf("provision credit account: %w", err)
	}
	return nil
}

// EnsureAccount provisions a missing account outside of registration, for
// identities created before the ledger existed. It returns the balance.
func (s *CreditService) EnsureAccount(ctx context.Context, userID string) (models.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Account{}, fmt.Errorf("begin provision: %w", err)
	}
	defer tx.Rollback()

	if err := s.ProvisionAccount(ctx, tx, userID); err != nil {
		return models.Account{}, err
	}

	balance, updatedAt, err := readBalance(ctx, tx, userID)
	if err != nil {
		return models.Account{}, fmt.Errorf("read balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Account{}, fmt.Errorf("commit provision: %w", err)
	}

	s.logger.Info("credit account ensured", zap.String("account_id", userID), zap.Int64("balance", balance))
	return models.Account{UserID: userID, Balance: balance, UpdatedAt: updatedAt}, nil
}

// LogAction appends a zero-charge action log. accountID is empty for
// system actions.
func (s *CreditService) LogAction(ctx context.Context, accountID, actionType string, statusCode int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_logs (id, user_id, action_type, credits_charged, status_code, timestamp)
		VALUES ($1, $2, $3, 0, $4, $5)`,
		uuid.NewString(), models.NullString(accountID), actionType, statusCode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append action log: %w", err)
	}
	return nil
}

const maxHistoryLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

// ListBillingRecords returns the newest billing records of an account.
func (s *CreditService) ListBillingRecords(ctx context.Context, accountID string, limit int) ([]models.BillingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, credits_added, amount_paid, payment_method, transaction_id, timestamp
		FROM billing_records
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`, accountID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	records := []models.BillingRecord{}
	for rows.Next() {
		var (
			r             models.BillingRecord
			paymentMethod sql.NullString
			transactionID sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.CreditsAdded, &r.AmountPaid, &paymentMethod, &transactionID, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		r.PaymentMethod = paymentMethod.String
		r.TransactionID = models.StringPtr(transactionID)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListActionLogs returns the newest action logs of an account.
func (s *CreditService) ListActionLogs(ctx context.Context, accountID string, limit int) ([]models.ActionLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action_type, credits_charged, status_code, timestamp
		FROM action_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`, accountID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list action logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ActionLog{}
	for rows.Next() {
		var (
			l          models.ActionLog
			userID     sql.NullString
			statusCode sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &userID, &l.ActionType, &l.CreditsCharged, &statusCode, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan action log: %w", err)
		}
		l.UserID = models.StringPtr(userID)
		if statusCode.Valid {
			code := int(statusCode.Int64)
			l.StatusCode = &code
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *CreditService) readBalance(ctx context.Context, accountID string) (int64, time.Time, error) {
	return readBalance(ctx, s.db, accountID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readBalance(ctx context.Context, q queryRower, accountID string) (int64, time.Time, error) {
	var (
		balance   int64
		updatedAt time.Time
	)
	err := q.QueryRowContext(ctx, `
		SELECT balance, updated_at
		FROM user_credits
		WHERE user_id = $1`, accountID).Scan(&balance, &updatedAt)
	return balance, updatedAt, err
}

// setLockTimeout bounds how long the transaction waits for a row lock. The
// setting is transaction local and disappears on commit or rollback.
func (s *CreditService) setLockTimeout(ctx context.Context, tx *sql.Tx) error {
	if s.cfg.LockTimeout <= 0 {
		return nil
	}
	timeout := fmt.Sprintf("%dms", s.cfg.LockTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	return nil
}
