// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gokatarajesh/paper-builder/internal/failure"
)

const namespace = "paperbuilder"

// Metrics groups the collectors used by the services.
type Metrics struct {
	PoolResolutions *prometheus.CounterVec
	BankFetch       *prometheus.HistogramVec
	DraftOps        *prometheus.CounterVec
	PaperOps        *prometheus.CounterVec
	ActiveSockets   prometheus.Gauge
}

// New registers the collectors with reg. A nil reg leaves them unregistered, which
// is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PoolResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "pool_resolutions_total",
			Help:      "Question pool resolutions by outcome.",
		}, []string{"category", "outcome"}),
		BankFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of question bank fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		DraftOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drafts",
			Name:      "operations_total",
			Help:      "Draft operations by name and outcome.",
		}, []string{"op", "outcome"}),
		PaperOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "papers",
			Name:      "operations_total",
			Help:      "Persistence gateway calls by name and outcome.",
		}, []string{"op", "outcome"}),
		ActiveSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open draft preview websockets.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.PoolResolutions, m.BankFetch, m.DraftOps, m.PaperOps, m.ActiveSockets)
	}
	return m
}

// Outcome converts an error into a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return failure.KindOf(err).String()
}
