package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authorization request interceptor.
type Metrics struct {
	// Decisions by kind and the policy that produced them
	Decisions *prometheus.CounterVec

	// Time spent per intercepted request, pending pass-throughs included
	InterceptLatency prometheus.Histogram

	// Backend faults that aborted an interaction, by component
	StoreErrors *prometheus.CounterVec
}

// Store components reported on gate_store_errors_total.
const (
	ComponentSessions = "sessions"
	ComponentClients  = "clients"
)

// New registers the gate metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_intercept_decisions_total",
			Help: "Total interceptor decisions by kind and reason",
		}, []string{"decision", "reason"}),

		InterceptLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gate_intercept_duration_seconds",
			Help:    "Duration of authorization request interception",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_store_errors_total",
			Help: "Total backend failures that aborted an interaction by component",
		}, []string{"component"}),
	}
}

// ObserveDecision records one decision and how long it took.
func (m *Metrics) ObserveDecision(decision, reason string, d time.Duration) {
	if m != nil {
		m.Decisions.WithLabelValues(decision, reason).Inc()
		m.InterceptLatency.Observe(d.Seconds())
	}
}

// IncrementStoreErrors counts one aborted interaction against component.
func (m *Metrics) IncrementStoreErrors(component string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(component).Inc()
	}
}
