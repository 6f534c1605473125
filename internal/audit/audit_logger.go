package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// QueueKey is the Redis list audit events are appended to.
const QueueKey = "credit_audit_events"

// Event types
const (
	EventBypass         = "BYPASS"
	EventGrant          = "GRANT"
	EventDuplicate      = "DUPLICATE_GRANT"
	EventWebhookReject  = "WEBHOOK_REJECTED"
	EventAccountMissing = "ACCOUNT_MISSING"
)

type AuditEvent struct {
	Timestamp     time.Time         `json:"timestamp"`
	EventType     string            `json:"event_type"`
	TransactionID string            `json:"transaction_id,omitempty"`
	AccountID     string            `json:"account_id,omitempty"`
	Amount        int64             `json:"amount"`
	Status        string            `json:"status"`
	Details       map[string]string `json:"details,omitempty"`
}

// Logger writes audit events to the structured log and, when Redis is
// configured, to QueueKey for downstream consumers. The Redis push is best
// effort; the log line is the record of last resort.
type Logger struct {
	logger *zap.Logger
	redis  *redis.Client
}

func NewLogger(logger *zap.Logger, rdb *redis.Client) *Logger {
	return &Logger{
		logger: logger.Named("audit"),
		redis:  rdb,
	}
}

// LogBypass records a debit skipped by the exemption policy.
func (a *Logger) LogBypass(ctx context.Context, accountID, actionType string, cost int64) {
	a.log(ctx, AuditEvent{
		Timestamp: time.Now(),
		EventType: EventBypass,
		AccountID: accountID,
		Amount:    cost,
		Status:    "EXEMPT",
		Details:   map[string]string{"action_type": actionType},
	})
}

// LogGrant records credits added to an account, or a replayed grant when
// duplicate is true.
func (a *Logger) LogGrant(ctx context.Context, accountID, transactionID string, credits int64, paymentMethod string, duplicate bool) {
	event := AuditEvent{
		Timestamp:     time.Now(),
		EventType:     EventGrant,
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        credits,
		Status:        "SUCCESS",
		Details:       map[string]string{"payment_method": paymentMethod},
	}
	if duplicate {
		event.EventType = EventDuplicate
		event.Status = "IGNORED"
	}
	a.log(ctx, event)
}

// LogSecurityEvent records rejected or suspicious requests.
func (a *Logger) LogSecurityEvent(ctx context.Context, eventType string, details map[string]string) {
	a.log(ctx, AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Status:    "REJECTED",
		Details:   details,
	})
}

// LogAccountMissing records a debit against an identity with no account row.
func (a *Logger) LogAccountMissing(ctx context.Context, accountID, actionType string, cost int64) {
	a.log(ctx, AuditEvent{
		Timestamp: time.Now(),
		EventType: EventAccountMissing,
		AccountID: accountID,
		Amount:    cost,
		Status:    "FAILED",
		Details:   map[string]string{"action_type": actionType, "cost": strconv.FormatInt(cost, 10)},
	})
}

func (a *Logger) log(ctx context.Context, event AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("marshal audit event", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}
	a.logger.Info("audit", zap.String("event_type", event.EventType), zap.ByteString("event", data))

	if a.redis == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := a.redis.RPush(pushCtx, QueueKey, string(data)).Err(); err != nil {
		a.logger.Warn("push audit event", zap.String("event_type", event.EventType), zap.Error(err))
	}
}
