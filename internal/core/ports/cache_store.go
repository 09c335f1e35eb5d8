package ports

import (
	"context"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// CacheStore persists captured responses grouped by namespace.
// Implementations must be safe for concurrent use. Concurrent writes
// to the same identity resolve as last writer wins.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache_store.go -destination=mocks/mock_cache_store.go -package=mocks
type CacheStore interface {
	// Open prepares a namespace, creating it if needed.
	Open(ctx context.Context, ns domain.CacheNamespace) error

	// Get returns the entry stored under id.
	// Returns nil, nil if not found.
	Get(ctx context.Context, ns domain.CacheNamespace, id domain.RequestIdentity) (*domain.CacheEntry, error)

	// Put stores or overwrites the entry under its identity.
	Put(ctx context.Context, ns domain.CacheNamespace, entry *domain.CacheEntry) error

	// Namespaces lists every namespace currently holding storage.
	Namespaces(ctx context.Context) ([]domain.CacheNamespace, error)

	// DeleteNamespacesExcept removes every namespace but keep and returns the removed ones.
	DeleteNamespacesExcept(ctx context.Context, keep domain.CacheNamespace) ([]domain.CacheNamespace, error)
}
