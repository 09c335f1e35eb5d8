// Package reconciler drains the offline queue against the server's batch endpoint.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/zerr"
)

// ReasonNotAcknowledged is recorded for records the server did not echo back.
const ReasonNotAcknowledged = "not acknowledged"

// Reconciler submits pending records in batches and settles each record's state.
type Reconciler struct {
	queue     ports.OfflineQueue
	syncer    ports.BatchSyncer
	logger    ports.Logger
	metrics   ports.Metrics
	telemetry ports.Telemetry
	cfg       domain.SyncConfig
	now       func() time.Time

	running sync.Mutex
	trigger chan struct{}

	mu   sync.RWMutex
	last *LastRun
}

// LastRun is the outcome of the most recent completed run.
type LastRun struct {
	Report *domain.SyncReport
	Err    error
	At     time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithTelemetry records every run as a progress vertex.
func WithTelemetry(t ports.Telemetry) Option {
	return func(r *Reconciler) { r.telemetry = t }
}

// New creates a Reconciler.
func New(
	queue ports.OfflineQueue,
	syncer ports.BatchSyncer,
	logger ports.Logger,
	metrics ports.Metrics,
	cfg domain.SyncConfig,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		queue:   queue,
		syncer:  syncer,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Last returns the most recent completed run, if any.
func (r *Reconciler) Last() (LastRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return LastRun{}, false
	}
	return *r.last, true
}

// Run performs one reconciliation pass. Only one pass runs at a time;
// a concurrent call returns domain.ErrSyncInProgress.
//
// A failed submission is returned as an error together with a report
// describing which records will be retried.
func (r *Reconciler) Run(ctx context.Context) (*domain.SyncReport, error) {
	if !r.running.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer r.running.Unlock()

	start := r.now()
	report := &domain.SyncReport{ByKind: map[string]int{}}

	var vertex ports.Vertex
	if r.telemetry != nil {
		ctx, vertex = r.telemetry.Record(ctx, "sync")
	}

	err := r.run(ctx, start, report)
	report.DurationMS = r.now().Sub(start).Milliseconds()
	r.finish(ctx, report, err, vertex)
	return report, err
}

func (r *Reconciler) run(ctx context.Context, start time.Time, report *domain.SyncReport) error {
	recovered, err := r.queue.RequeueStale(ctx, start.Add(-r.cfg.StaleAfter))
	if err != nil {
		return zerr.Wrap(err, "failed to recover stale records")
	}
	report.Recovered = recovered
	if recovered > 0 {
		r.logger.Warn("recovered stale in-flight records", "count", recovered)
	}

	pending, err := r.queue.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return zerr.Wrap(err, "failed to list pending records")
	}
	if len(pending) == 0 {
		return nil
	}

	ids := make([]string, len(pending))
	kinds := make(map[string]domain.RecordKind, len(pending))
	for i, rec := range pending {
		ids[i] = rec.ID
		kinds[rec.ID] = rec.Kind
	}
	claimed, err := r.queue.MarkInFlight(ctx, ids)
	if err != nil {
		return zerr.Wrap(err, "failed to mark records in-flight")
	}
	if len(claimed) < len(pending) {
		r.logger.Warn("records claimed by another sync run", "count", len(pending)-len(claimed))
		pending = owned(pending, claimed)
	}
	if len(pending) == 0 {
		return nil
	}

	// Records are in-flight from here on; settle them even if ctx is cancelled.
	settle := context.WithoutCancel(ctx)

	batch := &domain.BatchRequest{}
	var sent, malformed []string
	for _, rec := range pending {
		payload, err := domain.WithClientID(rec.Payload, rec.ID)
		if err != nil {
			malformed = append(malformed, rec.ID)
			continue
		}
		batch.Add(rec.Kind, payload)
		sent = append(sent, rec.ID)
	}
	if len(malformed) > 0 {
		if err := r.fail(settle, report, malformed, domain.ErrInvalidPayload.Error()); err != nil {
			return err
		}
	}
	if len(sent) == 0 {
		return nil
	}
	report.Submitted = len(sent)

	result, submitErr := r.syncer.Submit(ctx, batch)
	if submitErr != nil {
		report.LastError = submitErr.Error()
		if err := r.fail(settle, report, sent, submitErr.Error()); err != nil {
			return errors.Join(submitErr, err)
		}
		return zerr.With(zerr.Wrap(submitErr, "batch submission failed"), "records", len(sent))
	}

	accepted := result.Accepted()
	var delivered, missing []string
	for _, id := range sent {
		if _, ok := accepted[id]; ok {
			delivered = append(delivered, id)
			report.ByKind[string(kinds[id])]++
			continue
		}
		missing = append(missing, id)
	}

	if len(delivered) > 0 {
		if err := r.queue.MarkDelivered(settle, delivered); err != nil {
			return zerr.Wrap(err, "failed to mark records delivered")
		}
		report.Delivered = len(delivered)
	}
	if len(missing) > 0 {
		report.LastError = ReasonNotAcknowledged
		if err := r.fail(settle, report, missing, ReasonNotAcknowledged); err != nil {
			return err
		}
	}
	return nil
}

// owned keeps the records whose IDs are in claimed.
func owned(records []domain.QueuedRecord, claimed []string) []domain.QueuedRecord {
	set := make(map[string]struct{}, len(claimed))
	for _, id := range claimed {
		set[id] = struct{}{}
	}
	out := records[:0:0]
	for _, rec := range records {
		if _, ok := set[rec.ID]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// fail records a failed attempt for ids and updates the report.
func (r *Reconciler) fail(ctx context.Context, report *domain.SyncReport, ids []string, reason string) error {
	exhausted, err := r.queue.MarkFailed(ctx, ids, reason)
	if err != nil {
		return zerr.Wrap(err, "failed to record delivery failure")
	}
	report.Failed += len(exhausted)
	report.Requeued += len(ids) - len(exhausted)
	report.WillRetry = report.Requeued > 0
	for _, rec := range exhausted {
		report.FailedIDs = append(report.FailedIDs, rec.ID)
		r.logger.Warn("record exceeded retry budget", "id", rec.ID, "kind", string(rec.Kind), "attempts", rec.Attempts)
	}
	return nil
}

func (r *Reconciler) finish(ctx context.Context, report *domain.SyncReport, err error, vertex ports.Vertex) {
	r.metrics.ObserveSyncRun(report, err)
	if counts, cerr := r.queue.Counts(context.WithoutCancel(ctx)); cerr == nil {
		r.metrics.SetQueueDepth(counts)
	} else {
		r.logger.Error(zerr.Wrap(cerr, "failed to read queue depth"))
	}

	r.mu.Lock()
	r.last = &LastRun{Report: report, Err: err, At: r.now()}
	r.mu.Unlock()

	if vertex != nil {
		r.record(ctx, report, err, vertex)
	}

	if err == nil && report.Submitted > 0 {
		r.logger.Info("sync complete",
			"delivered", report.Delivered, "requeued", report.Requeued, "failed", report.Failed)
	}
}

func (r *Reconciler) record(ctx context.Context, report *domain.SyncReport, err error, vertex ports.Vertex) {
	if report.Submitted == 0 && err == nil {
		vertex.Cached()
		return
	}
	_, _ = fmt.Fprintf(vertex.Stdout(), "submitted %d record(s)\n", report.Submitted)
	for _, kind := range domain.RecordKinds {
		n := report.ByKind[string(kind)]
		if n == 0 {
			continue
		}
		_, kv := r.telemetry.Record(ctx, "sync "+string(kind))
		_, _ = fmt.Fprintf(kv.Stdout(), "delivered %d\n", n)
		kv.Complete(nil)
	}
	if report.Requeued > 0 {
		_, _ = fmt.Fprintf(vertex.Stdout(), "%d record(s) will retry\n", report.Requeued)
	}
	if report.Failed > 0 {
		_, _ = fmt.Fprintf(vertex.Stdout(), "%d record(s) failed permanently\n", report.Failed)
	}
	vertex.Complete(err)
}
