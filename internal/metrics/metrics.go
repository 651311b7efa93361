// Package metrics exposes Prometheus collectors for validation runs, ETL
// runs and workflow transitions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "finka"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ValidationRuns     *prometheus.CounterVec
	ValidationFindings *prometheus.CounterVec
	ETLRuns            *prometheus.CounterVec
	ETLRecords         *prometheus.CounterVec
	ETLDuration        prometheus.Histogram
	DroppedCashFlows   prometheus.Counter
	Transitions        *prometheus.CounterVec
	LedgerPublications *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ValidationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "runs_total",
			Help:      "Validation runs by outcome (valid or invalid).",
		}, []string{"outcome"}),
		ValidationFindings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "findings_total",
			Help:      "Validation findings by severity.",
		}, []string{"severity"}),
		ETLRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "etl",
			Name:      "runs_total",
			Help:      "ETL runs by outcome (success or failure).",
		}, []string{"outcome"}),
		ETLRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "etl",
			Name:      "lines_total",
			Help:      "Ledger lines produced by ETL stage.",
		}, []string{"stage"}),
		ETLDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "etl",
			Name:      "duration_seconds",
			Help:      "Duration of full ETL runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		DroppedCashFlows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "etl",
			Name:      "dropped_cash_flows_total",
			Help:      "Cash-flow lines without a matching revenue key during consolidation.",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Status transitions by domain and action.",
		}, []string{"domain", "action"}),
		LedgerPublications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "publications_total",
			Help:      "Ledger publications by outcome.",
		}, []string{"outcome"}),
	}
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func (m *Metrics) ObserveValidation(valid bool, errors, warnings, infos int) {
	if m == nil {
		return
	}
	m.ValidationRuns.WithLabelValues(outcome(valid, "valid", "invalid")).Inc()
	m.ValidationFindings.WithLabelValues("error").Add(float64(errors))
	m.ValidationFindings.WithLabelValues("warning").Add(float64(warnings))
	m.ValidationFindings.WithLabelValues("info").Add(float64(infos))
}

func (m *Metrics) ObserveETL(success bool, revenues, cashFlows, consolidated, dropped int, d time.Duration) {
	if m == nil {
		return
	}
	m.ETLRuns.WithLabelValues(outcome(success, "success", "failure")).Inc()
	m.ETLRecords.WithLabelValues("bdr").Add(float64(revenues))
	m.ETLRecords.WithLabelValues("dds").Add(float64(cashFlows))
	m.ETLRecords.WithLabelValues("fot").Add(float64(consolidated))
	m.DroppedCashFlows.Add(float64(dropped))
	m.ETLDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveTransition(domain, action string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(domain, action).Inc()
}

func (m *Metrics) ObservePublication(ok bool) {
	if m == nil {
		return
	}
	m.LedgerPublications.WithLabelValues(outcome(ok, "success", "failure")).Inc()
}
