// Package router implements the cache strategy router that sits in front of the origin.
package router

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

const (
	offlineBody              = "Offline"
	defaultRevalidateTimeout = 15 * time.Second
	defaultParallelism       = 4
)

// Options configures a Router.
type Options struct {
	Origin            *url.URL
	Namespace         domain.CacheNamespace
	Precache          []string
	Parallelism       int
	RevalidateTimeout time.Duration
}

// Router classifies requests and answers them from the cache, the network, or both.
type Router struct {
	store   ports.CacheStore
	fetcher ports.Fetcher
	logger  ports.Logger
	metrics ports.Metrics

	origin            *url.URL
	version           domain.CacheNamespace
	precache          []string
	parallelism       int
	revalidateTimeout time.Duration

	active     atomic.Pointer[domain.CacheNamespace]
	refresh    singleflight.Group
	background sync.WaitGroup
}

// New creates a Router serving from opts.Namespace.
func New(
	store ports.CacheStore,
	fetcher ports.Fetcher,
	logger ports.Logger,
	metrics ports.Metrics,
	opts Options,
) (*Router, error) {
	if opts.Origin == nil || !opts.Origin.IsAbs() {
		return nil, zerr.Wrap(domain.ErrInvalidConfig, "router origin must be an absolute URL")
	}
	if err := opts.Namespace.Validate(); err != nil {
		return nil, err
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = defaultParallelism
	}
	if opts.RevalidateTimeout <= 0 {
		opts.RevalidateTimeout = defaultRevalidateTimeout
	}

	r := &Router{
		store:             store,
		fetcher:           fetcher,
		logger:            logger,
		metrics:           metrics,
		origin:            opts.Origin,
		version:           opts.Namespace,
		precache:          opts.Precache,
		parallelism:       opts.Parallelism,
		revalidateTimeout: opts.RevalidateTimeout,
	}
	ns := opts.Namespace
	r.active.Store(&ns)
	return r, nil
}

// Namespace returns the namespace currently serving requests.
func (r *Router) Namespace() domain.CacheNamespace {
	return *r.active.Load()
}

// Wait blocks until every background revalidation has finished.
func (r *Router) Wait() {
	r.background.Wait()
}

// Handle answers req and reports which strategy and outcome produced the response.
// An error is returned only for bypassed requests the network could not serve.
func (r *Router) Handle(ctx context.Context, req *http.Request) (*domain.CacheEntry, domain.Strategy, domain.CacheOutcome, error) {
	strategy := Classify(req, r.origin)

	var (
		entry   *domain.CacheEntry
		outcome domain.CacheOutcome
		err     error
	)
	switch strategy {
	case domain.StrategyBypass:
		entry, err = r.fetch(ctx, req)
		outcome = domain.OutcomeBypass
	case domain.StrategyNavigate:
		entry, outcome = r.navigate(ctx, req)
	case domain.StrategyCacheFirst:
		entry, outcome = r.cacheFirst(ctx, req)
	case domain.StrategyNetworkFirst:
		entry, outcome = r.networkFirst(ctx, req)
	default:
		entry, outcome = r.staleWhileRevalidate(ctx, req)
	}

	r.metrics.ObserveRequest(strategy, outcome)
	return entry, strategy, outcome, err
}

func (r *Router) cacheFirst(ctx context.Context, req *http.Request) (*domain.CacheEntry, domain.CacheOutcome) {
	id, ok := r.identity(req)
	if !ok {
		return r.passThrough(ctx, req)
	}
	if cached := r.lookup(ctx, id); cached != nil {
		return cached, domain.OutcomeHit
	}
	fetched, err := r.fetch(ctx, req)
	if err != nil {
		return offline(), domain.OutcomeOffline
	}
	r.save(ctx, id, fetched)
	return fetched, domain.OutcomeMiss
}

func (r *Router) networkFirst(ctx context.Context, req *http.Request) (*domain.CacheEntry, domain.CacheOutcome) {
	id, ok := r.identity(req)
	if !ok {
		return r.passThrough(ctx, req)
	}
	fetched, err := r.fetch(ctx, req)
	if err == nil {
		r.save(ctx, id, fetched)
		return fetched, domain.OutcomeMiss
	}
	if cached := r.lookup(ctx, id); cached != nil {
		return cached, domain.OutcomeFallback
	}
	return offline(), domain.OutcomeOffline
}

func (r *Router) staleWhileRevalidate(ctx context.Context, req *http.Request) (*domain.CacheEntry, domain.CacheOutcome) {
	id, ok := r.identity(req)
	if !ok {
		return r.passThrough(ctx, req)
	}
	if cached := r.lookup(ctx, id); cached != nil {
		r.revalidate(ctx, id, req)
		return cached, domain.OutcomeStale
	}
	fetched, err := r.fetch(ctx, req)
	if err != nil {
		return offline(), domain.OutcomeOffline
	}
	r.save(ctx, id, fetched)
	return fetched, domain.OutcomeMiss
}

// navigate serves a document load. Successful loads are stored under the
// shell key so the application boots offline after one online visit.
func (r *Router) navigate(ctx context.Context, req *http.Request) (*domain.CacheEntry, domain.CacheOutcome) {
	shell := r.shellIdentity()
	fetched, err := r.fetch(ctx, req)
	if err == nil {
		r.save(ctx, shell, fetched)
		return fetched, domain.OutcomeMiss
	}
	if cached := r.lookup(ctx, shell); cached != nil {
		return cached, domain.OutcomeFallback
	}
	return offline(), domain.OutcomeOffline
}

// revalidate refreshes id in the background. A refresh already running for
// the same identity absorbs this one.
func (r *Router) revalidate(ctx context.Context, id domain.RequestIdentity, req *http.Request) {
	detached := context.WithoutCancel(ctx)
	outbound := req.Clone(detached)

	r.background.Add(1)
	ch := r.refresh.DoChan(id.Key(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(detached, r.revalidateTimeout)
		defer cancel()

		fetched, err := r.fetch(fetchCtx, outbound)
		if err != nil {
			return nil, err
		}
		r.save(fetchCtx, id, fetched)
		return nil, nil
	})
	go func() {
		defer r.background.Done()
		<-ch
	}()
}

func (r *Router) passThrough(ctx context.Context, req *http.Request) (*domain.CacheEntry, domain.CacheOutcome) {
	fetched, err := r.fetch(ctx, req)
	if err != nil {
		return offline(), domain.OutcomeOffline
	}
	return fetched, domain.OutcomeMiss
}

// fetch forwards req to the origin, rewriting relative request URLs.
func (r *Router) fetch(ctx context.Context, req *http.Request) (*domain.CacheEntry, error) {
	outbound := req.Clone(ctx)
	outbound.URL = target(req.URL, r.origin)
	outbound.Host = ""
	outbound.RequestURI = ""
	return r.fetcher.Fetch(ctx, outbound)
}

func (r *Router) identity(req *http.Request) (domain.RequestIdentity, bool) {
	id, err := domain.NewRequestIdentity(req.Method, target(req.URL, r.origin))
	if err != nil {
		r.logger.Warn("request not cacheable", "method", req.Method, "url", req.URL.String())
		return domain.RequestIdentity{}, false
	}
	return id, true
}

func (r *Router) shellIdentity() domain.RequestIdentity {
	return domain.RequestIdentity{
		Method: http.MethodGet,
		URL:    (&url.URL{Scheme: r.origin.Scheme, Host: r.origin.Host, Path: "/"}).String(),
	}
}

// lookup reads id from the active namespace. Read failures count as a miss.
func (r *Router) lookup(ctx context.Context, id domain.RequestIdentity) *domain.CacheEntry {
	ns := r.Namespace()
	entry, err := r.store.Get(ctx, ns, id)
	if err != nil {
		r.logger.Error(zerr.With(zerr.Wrap(err, "cache read failed"), "url", id.URL))
		return nil
	}
	return entry
}

// save stores entry under id when its status is cacheable. Write failures
// are logged and counted; the response is still served.
func (r *Router) save(ctx context.Context, id domain.RequestIdentity, entry *domain.CacheEntry) {
	if !domain.Storable(entry.Status) {
		return
	}
	stored := *entry
	stored.Identity = id

	ns := r.Namespace()
	if err := r.store.Put(ctx, ns, &stored); err != nil {
		r.metrics.ObserveCacheWriteError()
		r.logger.Error(zerr.With(zerr.With(zerr.Wrap(err, "cache write failed"), "namespace", ns.String()), "url", id.URL))
	}
}

// offline builds the synthetic response used when neither network nor cache can answer.
func offline() *domain.CacheEntry {
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &domain.CacheEntry{
		Status:     http.StatusServiceUnavailable,
		Header:     header,
		Body:       []byte(offlineBody),
		CapturedAt: time.Now().UTC(),
	}
}
