// Package cachestore implements ports.CacheStore on the local filesystem, in memory, and on S3.
package cachestore

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/fieldsync/internal/core/domain"
)

const entryExt = ".json"

// entryName returns the storage name for an identity.
func entryName(id domain.RequestIdentity) string {
	return strconv.FormatUint(xxhash.Sum64String(id.Key()), 16) + entryExt
}

// matches guards against hash collisions by comparing the stored identity.
func matches(entry *domain.CacheEntry, id domain.RequestIdentity) bool {
	return entry != nil && entry.Identity == id
}

func cloneEntry(e *domain.CacheEntry) *domain.CacheEntry {
	c := *e
	c.Header = e.Header.Clone()
	c.Body = append([]byte(nil), e.Body...)
	return &c
}
