// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/fieldsync/internal/adapters/cachestore"
	_ "go.trai.ch/fieldsync/internal/adapters/config"
	_ "go.trai.ch/fieldsync/internal/adapters/connectivity"
	_ "go.trai.ch/fieldsync/internal/adapters/logger"
	_ "go.trai.ch/fieldsync/internal/adapters/metrics"
	_ "go.trai.ch/fieldsync/internal/adapters/queue"
	_ "go.trai.ch/fieldsync/internal/adapters/syncclient"
	_ "go.trai.ch/fieldsync/internal/adapters/telemetry/progrock"
	_ "go.trai.ch/fieldsync/internal/adapters/upstream"
	// Register app and engine nodes.
	_ "go.trai.ch/fieldsync/internal/app"
	_ "go.trai.ch/fieldsync/internal/engine/reconciler"
	_ "go.trai.ch/fieldsync/internal/engine/router"
)
