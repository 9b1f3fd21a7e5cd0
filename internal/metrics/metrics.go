// Package metrics exposes Prometheus instrumentation for the HTTP API, reindex
// runs and archive ingests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/session-indexer/internal/archive"
	"github.com/jonathan/session-indexer/internal/types"
)

const namespace = "session_indexer"

// Metrics holds every collector on its own registry so tests and multiple
// servers never collide on the global default.
type Metrics struct {
	Registry *prometheus.Registry

	apiRequests       *prometheus.CounterVec
	apiDuration       *prometheus.HistogramVec
	apiActive         prometheus.Gauge
	reindexRuns       *prometheus.CounterVec
	reindexRecords    *prometheus.CounterVec
	reindexDuration   prometheus.Histogram
	ingestEntries     *prometheus.CounterVec
	recommendedTotals *prometheus.CounterVec
}

// New registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		}, []string{"method", "route", "status"}),
		apiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_active_requests",
			Help:      "Number of API requests currently being served",
		}),
		reindexRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_runs_total",
			Help:      "Reindex runs by outcome",
		}, []string{"outcome"}),
		reindexRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_records_total",
			Help:      "Records visited by reindex runs, by result",
		}, []string{"result"}),
		reindexDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reindex_duration_seconds",
			Help:      "Wall time of reindex runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		ingestEntries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_entries_total",
			Help:      "Archive entries seen by ingest runs, by result",
		}, []string{"result"}),
		recommendedTotals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommended sessions returned, by bucket",
		}, []string{"bucket"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordAPIRequest records one served request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordAPIRequest(method, route string, status int, duration time.Duration) {
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func (m *Metrics) TrackActiveRequest(inc bool) {
	if inc {
		m.apiActive.Inc()
	} else {
		m.apiActive.Dec()
	}
}

// ObserveReindex records the outcome of one reindex run. report may be nil when
// err is an initialization failure.
func (m *Metrics) ObserveReindex(report *types.ReindexReport, err error) {
	switch {
	case err != nil:
		m.reindexRuns.WithLabelValues("failed").Inc()
	case report == nil:
		return
	case report.Cancelled:
		m.reindexRuns.WithLabelValues("cancelled").Inc()
	case report.DryRun:
		m.reindexRuns.WithLabelValues("dry_run").Inc()
	default:
		m.reindexRuns.WithLabelValues("completed").Inc()
	}
	if report == nil {
		return
	}
	m.reindexRecords.WithLabelValues("updated").Add(float64(report.Updated))
	m.reindexRecords.WithLabelValues("unchanged").Add(float64(report.Unchanged))
	m.reindexRecords.WithLabelValues("error").Add(float64(report.ErrorCount()))
	if !report.FinishedAt.IsZero() {
		m.reindexDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
}

// ObserveIngest records the per-entry results of one ingest run.
func (m *Metrics) ObserveIngest(report *archive.IngestReport) {
	if report == nil {
		return
	}
	m.ingestEntries.WithLabelValues("created").Add(float64(report.Created))
	m.ingestEntries.WithLabelValues("updated").Add(float64(report.Updated))
	m.ingestEntries.WithLabelValues("unchanged").Add(float64(report.Unchanged))
	m.ingestEntries.WithLabelValues("skipped").Add(float64(report.Skipped))
	m.ingestEntries.WithLabelValues("error").Add(float64(len(report.Errors)))
}

// ObserveRecommendations counts the candidates placed in each bucket.
func (m *Metrics) ObserveRecommendations(set *types.RecommendationSet) {
	if set == nil {
		return
	}
	for _, b := range set.Buckets {
		m.recommendedTotals.WithLabelValues(string(b.Name)).Add(float64(len(b.Candidates)))
	}
}
