package ports

import "context"

// ConnectivityMonitor tracks whether the origin is reachable.
type ConnectivityMonitor interface {
	// Run probes until ctx is cancelled.
	Run(ctx context.Context) error
	// Online reports the last observed state.
	Online() bool
	// Regained delivers one signal per offline to online transition.
	Regained() <-chan struct{}
}
