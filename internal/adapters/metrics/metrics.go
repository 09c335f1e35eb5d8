// Package metrics exposes operational counters through Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/fieldsync/internal/core/domain"
)

const namespace = "fieldsync"

// Registry implements ports.Metrics on a private Prometheus registry.
type Registry struct {
	reg              *prometheus.Registry
	requests         *prometheus.CounterVec
	cacheWriteErrors prometheus.Counter
	syncRuns         *prometheus.CounterVec
	records          *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
}

// New creates a Registry with all collectors registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the cache router.",
		}, []string{"strategy", "outcome"}),
		cacheWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      "Cache writes that failed and were skipped.",
		}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Reconciler runs by result.",
		}, []string{"result"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "Queued records processed by the reconciler, by outcome.",
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Queued records by delivery state.",
		}, []string{"state"}),
	}
	r.reg.MustRegister(r.requests, r.cacheWriteErrors, r.syncRuns, r.records, r.queueDepth)
	return r
}

// ObserveRequest counts a routed request.
func (r *Registry) ObserveRequest(strategy domain.Strategy, outcome domain.CacheOutcome) {
	r.requests.WithLabelValues(string(strategy), string(outcome)).Inc()
}

// ObserveCacheWriteError counts a swallowed cache write failure.
func (r *Registry) ObserveCacheWriteError() {
	r.cacheWriteErrors.Inc()
}

// ObserveSyncRun counts a reconciler run.
func (r *Registry) ObserveSyncRun(report *domain.SyncReport, err error) {
	result := "success"
	switch {
	case err != nil:
		result = "error"
	case report == nil || report.Submitted == 0:
		result = "idle"
	case report.Delivered < report.Submitted:
		result = "partial"
	}
	r.syncRuns.WithLabelValues(result).Inc()

	if report == nil {
		return
	}
	r.records.WithLabelValues("delivered").Add(float64(report.Delivered))
	r.records.WithLabelValues("requeued").Add(float64(report.Requeued))
	r.records.WithLabelValues("failed").Add(float64(report.Failed))
	r.records.WithLabelValues("recovered").Add(float64(report.Recovered))
}

// SetQueueDepth publishes the number of records per state.
func (r *Registry) SetQueueDepth(counts map[domain.DeliveryState]int) {
	for state, n := range counts {
		r.queueDepth.WithLabelValues(string(state)).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
