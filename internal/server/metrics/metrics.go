// Package metrics holds the Prometheus instruments of the server. All
// recording methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	PassDuration     prometheus.Histogram   // memvault_pass_duration_seconds
	EntriesProcessed prometheus.Counter     // memvault_pass_entries_processed_total
	EntriesDeferred  prometheus.Counter     // memvault_pass_entries_deferred_total
	GateDecisions    *prometheus.CounterVec // memvault_gate_decisions_total{verdict}
	IntakeOutcomes   *prometheus.CounterVec // memvault_intake_outcomes_total{outcome}
	IntakeDropped    prometheus.Counter     // memvault_intake_dropped_total
	SyncedFiles      prometheus.Counter     // memvault_synced_files_total
	SyncedBytes      prometheus.Counter     // memvault_synced_bytes_total
}

// New registers the instruments on registry, or on the default registerer
// when registry is nil.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)

	return &Metrics{
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "memvault_pass_duration_seconds",
			Help:    "Duration of scheduled reconciliation passes",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 300},
		}),
		EntriesProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "memvault_pass_entries_processed_total",
			Help: "Registry entries processed by passes",
		}),
		EntriesDeferred: f.NewCounter(prometheus.CounterOpts{
			Name: "memvault_pass_entries_deferred_total",
			Help: "Registry entries deferred to a later pass by the runtime budget",
		}),
		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memvault_gate_decisions_total",
			Help: "Identity gate decisions by verdict",
		}, []string{"verdict"}),
		IntakeOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memvault_intake_outcomes_total",
			Help: "Processed submissions by outcome",
		}, []string{"outcome"}),
		IntakeDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "memvault_intake_dropped_total",
			Help: "Submissions dropped because the exclusive lock was not acquired in time",
		}),
		SyncedFiles: f.NewCounter(prometheus.CounterOpts{
			Name: "memvault_synced_files_total",
			Help: "Files moved into member containers",
		}),
		SyncedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "memvault_synced_bytes_total",
			Help: "Bytes moved into member containers",
		}),
	}
}

func (m *Metrics) RecordPass(d time.Duration, processed, deferred int) {
	if m == nil {
		return
	}
	m.PassDuration.Observe(d.Seconds())
	m.EntriesProcessed.Add(float64(processed))
	m.EntriesDeferred.Add(float64(deferred))
}

func (m *Metrics) RecordGate(verdict string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(verdict).Inc()
}

func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.IntakeOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.IntakeDropped.Inc()
}

func (m *Metrics) RecordSync(files int, bytes int64) {
	if m == nil {
		return
	}
	m.SyncedFiles.Add(float64(files))
	m.SyncedBytes.Add(float64(bytes))
}

// Handler serves the instruments of gatherer in the text exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
