package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

// FSStore implements ports.CacheStore with one directory per namespace
// and one JSON file per entry.
type FSStore struct {
	root string
	// mu serialises namespace deletion against reads and writes.
	mu sync.RWMutex
}

// NewFSStore creates a store rooted at dir. The directory is created lazily.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: filepath.Clean(dir)}
}

func (s *FSStore) nsDir(ns domain.CacheNamespace) (string, error) {
	if err := ns.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(ns)), nil
}

// Open creates the namespace directory.
func (s *FSStore) Open(_ context.Context, ns domain.CacheNamespace) error {
	dir, err := s.nsDir(ns)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache namespace"), "namespace", ns.String())
	}
	return nil
}

// Get retrieves the entry stored under id.
func (s *FSStore) Get(_ context.Context, ns domain.CacheNamespace, id domain.RequestIdentity) (*domain.CacheEntry, error) {
	dir, err := s.nsDir(ns)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	//nolint:gosec // Path is built from a validated namespace and a hash
	data, err := os.ReadFile(filepath.Join(dir, entryName(id)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read cache entry"), "url", id.URL)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal cache entry"), "url", id.URL)
	}
	if !matches(&entry, id) {
		return nil, nil
	}
	return &entry, nil
}

// Put stores the entry. The file is written to a temporary name and renamed
// so readers never observe a partial entry.
func (s *FSStore) Put(_ context.Context, ns domain.CacheNamespace, entry *domain.CacheEntry) error {
	dir, err := s.nsDir(ns)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache entry")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache namespace"), "namespace", ns.String())
	}

	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary cache entry")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to write cache entry")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close cache entry")
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.Wrap(err, "failed to set cache entry permissions")
	}
	if err := os.Rename(tmpName, filepath.Join(dir, entryName(entry.Identity))); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to commit cache entry"), "url", entry.Identity.URL)
	}
	return nil
}

// Namespaces lists the namespace directories under the root.
func (s *FSStore) Namespaces(_ context.Context) ([]domain.CacheNamespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namespaces()
}

func (s *FSStore) namespaces() ([]domain.CacheNamespace, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, "failed to list cache namespaces")
	}

	var out []domain.CacheNamespace
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, domain.CacheNamespace(e.Name()))
		}
	}
	return out, nil
}

// DeleteNamespacesExcept removes every namespace directory except keep.
func (s *FSStore) DeleteNamespacesExcept(_ context.Context, keep domain.CacheNamespace) ([]domain.CacheNamespace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.namespaces()
	if err != nil {
		return nil, err
	}

	var removed []domain.CacheNamespace
	for _, ns := range all {
		if ns == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, string(ns))); err != nil {
			return removed, zerr.With(zerr.Wrap(err, "failed to delete cache namespace"), "namespace", ns.String())
		}
		removed = append(removed, ns)
	}
	return removed, nil
}
