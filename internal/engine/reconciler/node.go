package reconciler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/config"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/logger"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/metrics"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/queue"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/syncclient" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fieldsync/internal/adapters/telemetry/progrock"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// NodeID is the unique identifier for the reconciler Graft node.
const NodeID graft.ID = "engine.reconciler"

func init() {
	graft.Register(graft.Node[*Reconciler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ConfigNodeID,
			queue.NodeID,
			syncclient.NodeID,
			logger.NodeID,
			metrics.NodeID,
			progrock.NodeID,
		},
		Run: func(ctx context.Context) (*Reconciler, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			q, err := graft.Dep[ports.OfflineQueue](ctx)
			if err != nil {
				return nil, err
			}

			syncer, err := graft.Dep[ports.BatchSyncer](ctx)
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

			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			return New(q, syncer, log, m, cfg.Sync, WithTelemetry(tel)), nil
		},
	})
}
