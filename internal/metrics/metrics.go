package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the cash engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Operations      *prometheus.CounterVec
	LedgerAmount    *prometheus.CounterVec
	CashBreaks      *prometheus.CounterVec
	BreakPercent    prometheus.Histogram
	ActiveSessions  prometheus.Gauge
	PendingTransfer prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kasa",
				Name:      "operations_total",
				Help:      "Cash engine operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		LedgerAmount: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kasa",
				Name:      "ledger_amount_total",
				Help:      "Absolute amount written to the ledger by transaction type",
			},
			[]string{"type"},
		),
		CashBreaks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kasa",
				Name:      "cash_breaks_total",
				Help:      "Closings with a non-zero cash break",
			},
			[]string{"severity"}, // notify | justify
		),
		BreakPercent: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "kasa",
				Name:      "cash_break_percent",
				Help:      "Absolute cash break as percent of expected cash",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		ActiveSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kasa",
				Name:      "active_sessions",
				Help:      "OPEN and REOPENED sessions, as counted in the store",
			},
		),
		PendingTransfer: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kasa",
				Name:      "pending_transfers",
				Help:      "Transfers awaiting treasury receipt, as of the last listing",
			},
		),
	}
}

func (m *Metrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Ledger(txType string, amount float64) {
	if m == nil {
		return
	}
	if amount < 0 {
		amount = -amount
	}
	m.LedgerAmount.WithLabelValues(txType).Add(amount)
}

func (m *Metrics) CashBreak(severity string, percent float64) {
	if m == nil {
		return
	}
	m.CashBreaks.WithLabelValues(severity).Inc()
	m.BreakPercent.Observe(percent)
}

// SetActiveSessions overwrites the gauge; the store is the source of truth.
func (m *Metrics) SetActiveSessions(n int64) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) PendingTransfers(n int) {
	if m == nil {
		return
	}
	m.PendingTransfer.Set(float64(n))
}
