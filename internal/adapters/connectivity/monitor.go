// Package connectivity probes the origin and reports when it becomes reachable again.
package connectivity

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// Monitor implements ports.ConnectivityMonitor by polling a health URL.
// The origin is assumed unreachable until the first successful probe.
type Monitor struct {
	url      string
	interval time.Duration
	http     *resty.Client
	logger   ports.Logger
	online   atomic.Bool
	regained chan struct{}
}

// New creates a Monitor probing origin + healthPath every interval.
func New(origin, healthPath string, interval, timeout time.Duration, log ports.Logger) *Monitor {
	return &Monitor{
		url:      strings.TrimRight(origin, "/") + healthPath,
		interval: interval,
		http:     resty.New().SetTimeout(timeout),
		logger:   log,
		regained: make(chan struct{}, 1),
	}
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Regained delivers a signal on each offline to online transition.
// Signals are coalesced when the consumer falls behind.
func (m *Monitor) Regained() <-chan struct{} {
	return m.regained
}

// Run probes immediately and then on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.Probe(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Probe performs one health check and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	resp, err := m.http.R().SetContext(ctx).Get(m.url)
	up := err == nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300

	was := m.online.Swap(up)
	switch {
	case up && !was:
		m.logger.Info("origin reachable", "url", m.url)
		select {
		case m.regained <- struct{}{}:
		default:
		}
	case !up && was && ctx.Err() == nil:
		m.logger.Warn("origin unreachable", "url", m.url)
	}
	return up
}
