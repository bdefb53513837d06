package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger core.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics,
	// exposed so an operational surface can scrape or dump it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	transactionsTotal *prometheus.CounterVec
	pinVerifications  *prometheus.CounterVec
	accountsCreated   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Total transaction records appended, by type and status.",
			},
			[]string{"type", "status"},
		),
		pinVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_pin_verifications_total",
				Help: "Total PIN verification attempts by result.",
			},
			[]string{"result"},
		),
		accountsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_accounts_created_total",
				Help: "Total accounts created by variant.",
			},
			[]string{"type"},
		),
	}
}

// RecordOperationDuration records the duration of a ledger operation.
func (m *Metrics) RecordOperationDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTransaction counts an appended transaction record.
func (m *Metrics) IncrTransaction(txnType, status string) {
	m.transactionsTotal.WithLabelValues(txnType, status).Inc()
}

// IncrPinVerification counts a PIN attempt: "success", "mismatch" or "locked".
func (m *Metrics) IncrPinVerification(result string) {
	m.pinVerifications.WithLabelValues(result).Inc()
}

// IncrAccountCreated counts a created account by variant.
func (m *Metrics) IncrAccountCreated(accountType string) {
	m.accountsCreated.WithLabelValues(accountType).Inc()
}

// Snapshot is a point-in-time view of session counters, suitable for a
// console summary on exit.
type Snapshot struct {
	SuccessfulTransactions float64
	FailedTransactions     float64
	PinSuccesses           float64
	PinMismatches          float64
	PinLockedAttempts      float64
}

// GetSnapshot gathers cumulative counter values across all transaction types.
func (m *Metrics) GetSnapshot() *Snapshot {
	snap := &Snapshot{
		PinSuccesses:      getCounterValue(m.pinVerifications, "success"),
		PinMismatches:     getCounterValue(m.pinVerifications, "mismatch"),
		PinLockedAttempts: getCounterValue(m.pinVerifications, "locked"),
	}
	for _, txnType := range []string{
		"DEPOSIT", "WITHDRAWAL", "TRANSFER_OUT", "TRANSFER_IN", "INTEREST", "WITHDRAWAL_PENALTY",
	} {
		snap.SuccessfulTransactions += getCounterValue(m.transactionsTotal, txnType, "SUCCESS")
		snap.FailedTransactions += getCounterValue(m.transactionsTotal, txnType, "FAILED")
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
