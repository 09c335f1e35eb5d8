package connectivity

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/config"
	"go.trai.ch/fieldsync/internal/adapters/logger"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// NodeID is the unique identifier for the connectivity monitor Graft node.
const NodeID graft.ID = "adapter.connectivity"

func init() {
	graft.Register(graft.Node[ports.ConnectivityMonitor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.ConnectivityMonitor, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			c := cfg.Connectivity
			return New(cfg.Origin, c.HealthPath, c.ProbeInterval, c.Timeout, log), nil
		},
	})
}
