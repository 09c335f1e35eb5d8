package syncclient

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/config"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// NodeID is the unique identifier for the batch sync client Graft node.
const NodeID graft.ID = "adapter.sync_client"

func init() {
	graft.Register(graft.Node[ports.BatchSyncer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID},
		Run: func(ctx context.Context) (ports.BatchSyncer, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.Origin, cfg.Sync.Endpoint, cfg.Sync.Timeout), nil
		},
	})
}
