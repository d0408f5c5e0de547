// Package metrics exposes Prometheus counters for ingestion and publishing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by the ingestors.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeNoData  = "no_data"
)

// Metrics holds all pipeline metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	EntitiesFetched *prometheus.CounterVec
	RecordsEmitted  *prometheus.CounterVec
	RecordsDropped  *prometheus.CounterVec
	SnapshotsMissed *prometheus.CounterVec
	BatchesFlushed  *prometheus.CounterVec
	RowsWritten     *prometheus.CounterVec
	ValidationFails *prometheus.CounterVec
	DatasetsPublish *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the metrics on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		EntitiesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "entities_fetched_total",
			Help:      "Per-entity fetches by stream and outcome.",
		}, []string{"stream", "outcome"}),
		RecordsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "records_emitted_total",
			Help:      "Flat records emitted by transforms.",
		}, []string{"dataset"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "records_dropped_total",
			Help:      "Candidate records dropped for lacking a usable event date.",
		}, []string{"dataset"}),
		SnapshotsMissed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "snapshots_missing_total",
			Help:      "Entities skipped at transform time because no raw snapshot was cached.",
		}, []string{"dataset"}),
		BatchesFlushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "batches_flushed_total",
			Help:      "Table batches handed to the sink.",
		}, []string{"dataset", "mode"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "rows_written_total",
			Help:      "Rows written to the sink.",
		}, []string{"dataset"}),
		ValidationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "validation_failures_total",
			Help:      "Failed quality checks by dataset and check.",
		}, []string{"dataset", "check"}),
		DatasetsPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgar",
			Name:      "datasets_published_total",
			Help:      "Datasets published after validation passed.",
		}, []string{"dataset"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.EntitiesFetched,
		m.RecordsEmitted,
		m.RecordsDropped,
		m.SnapshotsMissed,
		m.BatchesFlushed,
		m.RowsWritten,
		m.ValidationFails,
		m.DatasetsPublish,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FetchOutcome(stream, outcome string) {
	if m == nil {
		return
	}
	m.EntitiesFetched.WithLabelValues(stream, outcome).Inc()
}

func (m *Metrics) Emitted(dataset string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsEmitted.WithLabelValues(dataset).Add(float64(n))
}

func (m *Metrics) Dropped(dataset string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsDropped.WithLabelValues(dataset).Add(float64(n))
}

func (m *Metrics) SnapshotMissing(dataset string) {
	if m == nil {
		return
	}
	m.SnapshotsMissed.WithLabelValues(dataset).Inc()
}

func (m *Metrics) BatchFlushed(dataset, mode string, rows int) {
	if m == nil {
		return
	}
	m.BatchesFlushed.WithLabelValues(dataset, mode).Inc()
	m.RowsWritten.WithLabelValues(dataset).Add(float64(rows))
}

func (m *Metrics) ValidationFailed(dataset, check string) {
	if m == nil {
		return
	}
	m.ValidationFails.WithLabelValues(dataset, check).Inc()
}

func (m *Metrics) Published(dataset string) {
	if m == nil {
		return
	}
	m.DatasetsPublish.WithLabelValues(dataset).Inc()
}
