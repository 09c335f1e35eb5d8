package reconciler

import (
	"context"
	"errors"
	"time"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// Trigger requests a run from Loop as soon as possible. Requests made while
// one is already waiting are coalesced.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Loop runs the reconciler on every trigger until ctx is cancelled.
// Triggers are the sync interval, connectivity being regained and Trigger.
// The interval is skipped while monitor reports the origin offline, and
// grows after consecutive failed runs. A successful run or regained
// connectivity resets it.
func (r *Reconciler) Loop(ctx context.Context, monitor ports.ConnectivityMonitor) error {
	var regained <-chan struct{}
	if monitor != nil {
		regained = monitor.Regained()
	}

	failures := 0
	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if monitor != nil && !monitor.Online() {
				timer.Reset(r.Backoff(failures))
				continue
			}
		case <-regained:
			failures = 0
		case <-r.trigger:
		}

		_, err := r.Run(ctx)
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
		case err != nil:
			failures++
			if ctx.Err() == nil {
				r.logger.Error(err)
			}
		default:
			failures = 0
		}
		timer.Reset(r.Backoff(failures))
	}
}

// Backoff returns the wait before the next interval run after the given
// number of consecutive failures: the interval doubled per failure, capped
// at the configured maximum.
func (r *Reconciler) Backoff(failures int) time.Duration {
	d := r.cfg.Interval
	for range failures {
		d *= 2
		if r.cfg.MaxBackoff > 0 && d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return d
}
