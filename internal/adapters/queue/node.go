package queue

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/config"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// NodeID is the unique identifier for the offline queue Graft node.
const NodeID graft.ID = "adapter.offline_queue"

func init() {
	graft.Register(graft.Node[ports.OfflineQueue]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID},
		Run: func(ctx context.Context) (ports.OfflineQueue, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return Open(ctx, cfg.Queue.Driver, cfg.Queue.DSN, cfg.Sync.MaxAttempts)
		},
	})
}
