// Package metrics provides Prometheus metrics for the dashboard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeServiceError = "service_error"
	OutcomeTransport    = "transport_error"
)

// Metrics contains the dashboard collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetchesTotal   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	staleResponses *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wthr_fetches_total",
				Help: "Total number of weather service requests",
			},
			[]string{"endpoint", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wthr_fetch_duration_seconds",
				Help: "Time taken by weather service requests",
				// 50ms to ~25s
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"endpoint"},
		),
		staleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wthr_stale_responses_total",
				Help: "Responses discarded because a newer request was issued for the same view",
			},
			[]string{"view"},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wthr_sessions_active",
				Help: "Number of live dashboard sessions",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.fetchesTotal, m.fetchDuration, m.staleResponses, m.sessionsActive} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordFetch records one weather service request.
func (m *Metrics) RecordFetch(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(endpoint, outcome).Inc()
	m.fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordStale records a discarded out-of-date response.
func (m *Metrics) RecordStale(view string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(view).Inc()
}

// SessionOpened increments the live session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the live session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
