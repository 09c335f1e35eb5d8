package router

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// InstallFailure is a shell resource that could not be pre-cached.
type InstallFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// InstallReport lists the outcome of pre-caching each shell resource.
type InstallReport struct {
	Namespace domain.CacheNamespace `json:"namespace"`
	Cached    []string              `json:"cached"`
	Failed    []InstallFailure      `json:"failed,omitempty"`
}

// Install pre-caches the shell resources into the router's namespace.
// A failed resource is logged and reported; the others are still cached.
func (r *Router) Install(ctx context.Context) (*InstallReport, error) {
	if err := r.store.Open(ctx, r.version); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open cache namespace"), "namespace", r.version.String())
	}

	report := &InstallReport{Namespace: r.version}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for _, path := range r.precache {
		g.Go(func() error {
			err := r.installOne(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("pre-cache failed", "path", path, "error", err.Error())
				report.Failed = append(report.Failed, InstallFailure{Path: path, Reason: err.Error()})
				return nil
			}
			report.Cached = append(report.Cached, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, zerr.Wrap(err, "install interrupted")
	}

	slices.Sort(report.Cached)
	slices.SortFunc(report.Failed, func(a, b InstallFailure) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	r.logger.Info("install complete",
		"namespace", r.version.String(), "cached", len(report.Cached), "failed", len(report.Failed))
	return report, nil
}

func (r *Router) installOne(ctx context.Context, path string) error {
	ref, err := url.Parse(path)
	if err != nil {
		return zerr.Wrap(err, "bad pre-cache path")
	}
	u := r.origin.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return zerr.Wrap(err, "failed to build request")
	}
	id, err := domain.NewRequestIdentity(http.MethodGet, u)
	if err != nil {
		return err
	}

	entry, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if !domain.Storable(entry.Status) {
		return zerr.New("unexpected status " + strconv.Itoa(entry.Status))
	}
	stored := *entry
	stored.Identity = id
	if err := r.store.Put(ctx, r.version, &stored); err != nil {
		r.metrics.ObserveCacheWriteError()
		return zerr.Wrap(err, "cache write failed")
	}
	return nil
}

// Activate deletes every namespace but the router's own and starts serving
// from it. It returns the namespaces that were removed.
func (r *Router) Activate(ctx context.Context) ([]domain.CacheNamespace, error) {
	removed, err := r.store.DeleteNamespacesExcept(ctx, r.version)
	if err != nil {
		return removed, zerr.With(zerr.Wrap(err, "failed to remove superseded namespaces"), "namespace", r.version.String())
	}

	ns := r.version
	r.active.Store(&ns)

	for _, old := range removed {
		r.logger.Info("removed cache namespace", "namespace", old.String())
	}
	r.logger.Info("cache namespace active", "namespace", ns.String())
	return removed, nil
}
