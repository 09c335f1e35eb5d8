package cachestore

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// MemoryStore implements ports.CacheStore in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.CacheNamespace]map[string]*domain.CacheEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.CacheNamespace]map[string]*domain.CacheEntry)}
}

// Open creates the namespace if it does not exist.
func (s *MemoryStore) Open(_ context.Context, ns domain.CacheNamespace) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(ns)
	return nil
}

func (s *MemoryStore) bucket(ns domain.CacheNamespace) map[string]*domain.CacheEntry {
	b, ok := s.entries[ns]
	if !ok {
		b = make(map[string]*domain.CacheEntry)
		s.entries[ns] = b
	}
	return b
}

// Get retrieves a copy of the entry stored under id.
func (s *MemoryStore) Get(_ context.Context, ns domain.CacheNamespace, id domain.RequestIdentity) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[ns][id.Key()]
	if !ok {
		return nil, nil
	}
	return cloneEntry(entry), nil
}

// Put stores a copy of the entry.
func (s *MemoryStore) Put(_ context.Context, ns domain.CacheNamespace, entry *domain.CacheEntry) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(ns)[entry.Identity.Key()] = cloneEntry(entry)
	return nil
}

// Namespaces lists the namespaces in sorted order.
func (s *MemoryStore) Namespaces(_ context.Context) ([]domain.CacheNamespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CacheNamespace, 0, len(s.entries))
	for ns := range s.entries {
		out = append(out, ns)
	}
	slices.Sort(out)
	return out, nil
}

// DeleteNamespacesExcept drops every namespace but keep.
func (s *MemoryStore) DeleteNamespacesExcept(_ context.Context, keep domain.CacheNamespace) ([]domain.CacheNamespace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []domain.CacheNamespace
	for ns := range s.entries {
		if ns != keep {
			delete(s.entries, ns)
			removed = append(removed, ns)
		}
	}
	slices.Sort(removed)
	return removed, nil
}
