package cachestore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fieldsync/internal/adapters/config"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/zerr"
)

// NodeID is the unique identifier for the cache store Graft node.
const NodeID graft.ID = "adapter.cache_store"

func init() {
	graft.Register(graft.Node[ports.CacheStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID},
		Run: func(ctx context.Context) (ports.CacheStore, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(ctx, cfg.Cache)
		},
	})
}

// New builds the cache store selected by cfg.Driver.
func New(ctx context.Context, cfg domain.CacheConfig) (ports.CacheStore, error) {
	switch cfg.Driver {
	case domain.CacheDriverFS, "":
		return NewFSStore(cfg.Dir), nil
	case domain.CacheDriverMemory:
		return NewMemoryStore(), nil
	case domain.CacheDriverS3:
		return NewS3Store(ctx, S3Options{S3Config: cfg.S3})
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownDriver, "cache"), "driver", cfg.Driver)
	}
}
