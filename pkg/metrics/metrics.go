package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jakechorley/race-roster/pkg/core/allocator"
)

// Metrics tracks allocation outcomes and write contention.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Outcomes          *prometheus.CounterVec
	BypassedChecks    prometheus.Counter
	VersionConflicts  prometheus.Counter
	RetriesExhausted  prometheus.Counter
	OperationDuration *prometheus.HistogramVec
	PublishFailures   prometheus.Counter
}

// New creates a Metrics instance registered on its own registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "race_roster_outcomes_total",
			Help: "Committed allocation events by kind",
		}, []string{"kind"}),
		BypassedChecks: factory.NewCounter(prometheus.CounterOpts{
			Name: "race_roster_eligibility_bypassed_total",
			Help: "Registrations accepted or queued despite failed eligibility checks",
		}),
		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "race_roster_version_conflicts_total",
			Help: "Saves rejected because another writer committed first",
		}),
		RetriesExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "race_roster_retries_exhausted_total",
			Help: "Operations abandoned after exhausting save attempts",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "race_roster_operation_duration_seconds",
			Help:    "Duration of race operations including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "race_roster_publish_failures_total",
			Help: "Outcome events that could not be handed to the notification queue",
		}),
	}
}

// RecordEvents counts committed events
func (m *Metrics) RecordEvents(events []allocator.Event) {
	if m == nil {
		return
	}
	for _, e := range events {
		m.Outcomes.WithLabelValues(string(e.Kind)).Inc()
		if e.Bypassed {
			m.BypassedChecks.Inc()
		}
	}
}

func (m *Metrics) IncrementVersionConflict() {
	if m == nil {
		return
	}
	m.VersionConflicts.Inc()
}

func (m *Metrics) IncrementRetriesExhausted() {
	if m == nil {
		return
	}
	m.RetriesExhausted.Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
