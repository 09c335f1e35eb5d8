package ports

import (
	"net/http"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// Metrics records operational counters.
type Metrics interface {
	// ObserveRequest counts a routed request by strategy and outcome.
	ObserveRequest(strategy domain.Strategy, outcome domain.CacheOutcome)
	// ObserveCacheWriteError counts a swallowed cache write failure.
	ObserveCacheWriteError()
	// ObserveSyncRun counts a reconciler run and its record totals.
	ObserveSyncRun(report *domain.SyncReport, err error)
	// SetQueueDepth publishes the number of records per state.
	SetQueueDepth(counts map[domain.DeliveryState]int)
	// Handler exposes the metrics for scraping.
	Handler() http.Handler
}
