package router

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/cachestore" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/config"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/logger"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/metrics"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/upstream"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// NodeID is the unique identifier for the router Graft node.
const NodeID graft.ID = "engine.router"

func init() {
	graft.Register(graft.Node[*Router]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ConfigNodeID,
			cachestore.NodeID,
			upstream.NodeID,
			logger.NodeID,
			metrics.NodeID,
		},
		Run: func(ctx context.Context) (*Router, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}

			fetcher, err := graft.Dep[ports.Fetcher](ctx)
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

			origin, err := cfg.OriginURL()
			if err != nil {
				return nil, err
			}

			return New(store, fetcher, log, m, Options{
				Origin:            origin,
				Namespace:         cfg.Cache.Version,
				Precache:          cfg.Cache.Precache,
				Parallelism:       cfg.Cache.InstallParallelism,
				RevalidateTimeout: cfg.Cache.RevalidateTimeout,
			})
		},
	})
}
