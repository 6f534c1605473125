package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Debit results
const (
	ResultOK           = "ok"
	ResultInsufficient = "insufficient_funds"
	ResultNotFound     = "account_not_found"
	ResultContention   = "lock_contention"
	ResultError        = "error"
	ResultDuplicate    = "duplicate"
)

// CreditDebits counts debit attempts by outcome.
var CreditDebits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vylarc",
	Subsystem: "credit",
	Name:      "debits_total",
	Help:      "Debit attempts by result.",
}, []string{"result"})

// CreditGrants counts grant attempts by outcome.
var CreditGrants = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vylarc",
	Subsystem: "credit",
	Name:      "grants_total",
	Help:      "Grant attempts by result.",
}, []string{"result"})

// CreditBypass counts debits skipped for the exempt identity.
var CreditBypass = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vylarc",
	Subsystem: "credit",
	Name:      "bypass_total",
	Help:      "Debits skipped by the exemption policy, by action type.",
}, []string{"action"})

// WebhookEvents counts purchase webhooks by ingestion status.
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "vylarc",
	Subsystem: "webhook",
	Name:      "events_total",
	Help:      "Purchase webhook deliveries by status.",
}, []string{"status"})

// LockWait observes time spent acquiring the account row lock.
var LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "vylarc",
	Subsystem: "credit",
	Name:      "lock_wait_seconds",
	Help:      "Time spent waiting for the account row lock.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})
