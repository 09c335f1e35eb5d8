// Package app implements the application layer for fieldsync.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/fieldsync/internal/engine/reconciler"
	"go.trai.ch/fieldsync/internal/engine/router"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App represents the main application logic.
type App struct {
	cfg        *domain.Config
	router     *router.Router
	reconciler *reconciler.Reconciler
	queue      ports.OfflineQueue
	monitor    ports.ConnectivityMonitor
	logger     ports.Logger
}

// New creates a new App instance.
func New(
	cfg *domain.Config,
	rt *router.Router,
	rec *reconciler.Reconciler,
	queue ports.OfflineQueue,
	monitor ports.ConnectivityMonitor,
	logger ports.Logger,
) *App {
	return &App{
		cfg:        cfg,
		router:     rt,
		reconciler: rec,
		queue:      queue,
		monitor:    monitor,
		logger:     logger,
	}
}

// Router returns the cache strategy router used as the daemon's fallback handler.
func (a *App) Router() http.Handler {
	return a.router
}

// Close releases the queue storage.
func (a *App) Close() error {
	if c, ok := a.queue.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// EnqueueRequest is a locally created record to be queued for delivery.
// Attendance events carrying both a location and a fence are checked
// against the fence before they are queued.
type EnqueueRequest struct {
	Kind     domain.RecordKind
	Payload  json.RawMessage
	Location *domain.Coordinate
	Fence    *domain.GeoFenceSpec
}

// Enqueue validates and stores a record, then asks the reconciler to run.
// A geo-fence violation is returned as domain.ErrGeoFenceViolation together
// with the check result.
func (a *App) Enqueue(ctx context.Context, req EnqueueRequest) (string, *domain.GeoFenceResult, error) {
	var check *domain.GeoFenceResult
	if req.Kind == domain.KindAttendanceEvent && req.Location != nil && req.Fence != nil {
		res, err := domain.CheckLocation(*req.Location, *req.Fence)
		if err != nil {
			return "", nil, err
		}
		check = &res
		if res.Violation {
			err := zerr.With(zerr.Wrap(domain.ErrGeoFenceViolation, "attendance rejected"), "distance_meters", res.DistanceMeters)
			return "", check, err
		}
	}

	id, err := a.queue.Enqueue(ctx, req.Kind, req.Payload)
	if err != nil {
		return "", check, zerr.Wrap(err, "failed to queue record")
	}
	a.logger.Info("record queued", "id", id, "kind", string(req.Kind))
	a.reconciler.Trigger()
	return id, check, nil
}

// ListQueue returns queued records in the given states, or all of them.
func (a *App) ListQueue(ctx context.Context, states ...domain.DeliveryState) ([]domain.QueuedRecord, error) {
	return a.queue.List(ctx, states...)
}

// Retry re-submits a failed record with a fresh retry budget.
func (a *App) Retry(ctx context.Context, id string) error {
	if err := a.queue.Requeue(ctx, id); err != nil {
		return err
	}
	a.logger.Info("record requeued", "id", id)
	a.reconciler.Trigger()
	return nil
}

// Discard drops a pending or failed record.
func (a *App) Discard(ctx context.Context, id string) error {
	if err := a.queue.Discard(ctx, id); err != nil {
		return err
	}
	a.logger.Info("record discarded", "id", id)
	return nil
}

// SyncNow runs the reconciler once and returns its report.
func (a *App) SyncNow(ctx context.Context) (*domain.SyncReport, error) {
	return a.reconciler.Run(ctx)
}

// CheckFence validates a location against a fence.
func (a *App) CheckFence(at domain.Coordinate, fence domain.GeoFenceSpec) (domain.GeoFenceResult, error) {
	return domain.CheckLocation(at, fence)
}

// LastSync describes the most recent reconciler run.
type LastSync struct {
	At     time.Time          `json:"at"`
	Report *domain.SyncReport `json:"report,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// Status is a snapshot of the daemon state.
type Status struct {
	Online    bool                         `json:"online"`
	Namespace domain.CacheNamespace        `json:"namespace"`
	Queue     map[domain.DeliveryState]int `json:"queue"`
	LastSync  *LastSync                    `json:"lastSync,omitempty"`
}

// Status reports connectivity, queue depth and the active cache namespace.
func (a *App) Status(ctx context.Context) (*Status, error) {
	counts, err := a.queue.Counts(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to count queued records")
	}
	st := &Status{
		Online:    a.monitor.Online(),
		Namespace: a.router.Namespace(),
		Queue:     counts,
	}
	if last, ok := a.reconciler.Last(); ok {
		st.LastSync = &LastSync{At: last.At, Report: last.Report}
		if last.Err != nil {
			st.LastSync.Error = last.Err.Error()
		}
	}
	return st, nil
}

// Install pre-caches the shell resources for the configured cache version.
func (a *App) Install(ctx context.Context) (*router.InstallReport, error) {
	return a.router.Install(ctx)
}

// CleanCache removes every cache namespace but the configured one.
func (a *App) CleanCache(ctx context.Context) ([]domain.CacheNamespace, error) {
	return a.router.Activate(ctx)
}

// Serve listens on the configured address and runs the daemon until ctx is cancelled.
func (a *App) Serve(ctx context.Context, handler http.Handler) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.cfg.Listen)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen"), "address", a.cfg.Listen)
	}
	return a.ServeOn(ctx, ln, handler)
}

// ServeOn runs the daemon on ln: it installs and activates the cache,
// starts the connectivity monitor and the reconciler loop, and serves
// handler until ctx is cancelled.
func (a *App) ServeOn(ctx context.Context, ln net.Listener, handler http.Handler) error {
	if _, err := a.router.Install(ctx); err != nil {
		_ = ln.Close()
		return zerr.Wrap(err, "cache install failed")
	}
	if _, err := a.router.Activate(ctx); err != nil {
		_ = ln.Close()
		return zerr.Wrap(err, "cache activation failed")
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.monitor.Run(gctx)
	})
	g.Go(func() error {
		return a.reconciler.Loop(gctx, a.monitor)
	})
	g.Go(func() error {
		a.logger.Info("serving", "address", ln.Addr().String(), "origin", a.cfg.Origin)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return zerr.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.router.Wait()
		return err
	})
	return g.Wait()
}
