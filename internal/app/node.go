package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/config"       //nolint:depguard // Wired in app layer
	"go.trai.ch/fieldsync/internal/adapters/connectivity" //nolint:depguard // Wired in app layer
	"go.trai.ch/fieldsync/internal/adapters/logger"       //nolint:depguard // Wired in app layer
	"go.trai.ch/fieldsync/internal/adapters/metrics"      //nolint:depguard // Wired in app layer
	"go.trai.ch/fieldsync/internal/adapters/queue"        //nolint:depguard // Wired in app layer
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/fieldsync/internal/engine/reconciler"
	"go.trai.ch/fieldsync/internal/engine/router"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ConfigNodeID,
			router.NodeID,
			reconciler.NodeID,
			queue.NodeID,
			connectivity.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			rt, err := graft.Dep[*router.Router](ctx)
			if err != nil {
				return nil, err
			}

			rec, err := graft.Dep[*reconciler.Reconciler](ctx)
			if err != nil {
				return nil, err
			}

			q, err := graft.Dep[ports.OfflineQueue](ctx)
			if err != nil {
				return nil, err
			}

			monitor, err := graft.Dep[ports.ConnectivityMonitor](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(cfg, rt, rec, q, monitor, log), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			metrics.NodeID,
			config.ConfigNodeID,
		},
		Run: runComponentsNode,
	})
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	m, err := graft.Dep[ports.Metrics](ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:     app,
		Logger:  log,
		Metrics: m,
		Config:  cfg,
	}, nil
}
