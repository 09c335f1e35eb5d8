package cachestore_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fieldsync/internal/adapters/cachestore"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

func identity(t *testing.T, raw string) domain.RequestIdentity {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	id, err := domain.NewRequestIdentity(http.MethodGet, u)
	require.NoError(t, err)
	return id
}

func entry(id domain.RequestIdentity, body string) *domain.CacheEntry {
	return &domain.CacheEntry{
		Identity:   id,
		Status:     http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       []byte(body),
		CapturedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func stores(t *testing.T) map[string]ports.CacheStore {
	t.Helper()
	s3Store, err := cachestore.NewS3Store(context.Background(), cachestore.S3Options{
		S3Config: domain.S3Config{
			Bucket:    "fieldsync-cache",
			Region:    "ap-south-1",
			Endpoint:  newFakeS3(t).URL,
			PathStyle: true,
		},
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	})
	require.NoError(t, err)

	return map[string]ports.CacheStore{
		"fs":     cachestore.NewFSStore(filepath.Join(t.TempDir(), "cache")),
		"memory": cachestore.NewMemoryStore(),
		"s3":     s3Store,
	}
}

func TestCacheStore_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ns := domain.CacheNamespace("fieldsync-v1")
			id := identity(t, "https://site.example.com/assets/app.js")

			require.NoError(t, store.Open(ctx, ns))

			got, err := store.Get(ctx, ns, id)
			require.NoError(t, err)
			assert.Nil(t, got, "absent entry must be nil")

			require.NoError(t, store.Put(ctx, ns, entry(id, "v1")))
			got, err = store.Get(ctx, ns, id)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "v1", string(got.Body))
			assert.Equal(t, "text/plain", got.Header.Get("Content-Type"))
			assert.Equal(t, http.StatusOK, got.Status)

			require.NoError(t, store.Put(ctx, ns, entry(id, "v2")))
			got, err = store.Get(ctx, ns, id)
			require.NoError(t, err)
			assert.Equal(t, "v2", string(got.Body), "put must overwrite")

			other := domain.CacheNamespace("fieldsync-v0")
			require.NoError(t, store.Put(ctx, other, entry(id, "old")))

			namespaces, err := store.Namespaces(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []domain.CacheNamespace{ns, other}, namespaces)

			removed, err := store.DeleteNamespacesExcept(ctx, ns)
			require.NoError(t, err)
			assert.Equal(t, []domain.CacheNamespace{other}, removed)

			got, err = store.Get(ctx, other, id)
			require.NoError(t, err)
			assert.Nil(t, got)

			got, err = store.Get(ctx, ns, id)
			require.NoError(t, err)
			assert.NotNil(t, got, "active namespace must survive")
		})
	}
}

func TestCacheStore_RejectsBadNamespace(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Open(context.Background(), "../escape")
			assert.ErrorIs(t, err, domain.ErrInvalidNamespace)
		})
	}
}

func TestFSStore_ConcurrentWritesLastWriterWins(t *testing.T) {
	store := cachestore.NewFSStore(t.TempDir())
	ctx := context.Background()
	ns := domain.CacheNamespace("fieldsync-v1")
	id := identity(t, "https://site.example.com/api/projects")

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(ctx, ns, entry(id, fmt.Sprintf("body-%02d", i))))
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, ns, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Regexp(t, `^body-\d\d$`, string(got.Body))
}

func TestFSStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ns := domain.CacheNamespace("fieldsync-v1")
	id := identity(t, "https://site.example.com/")

	require.NoError(t, cachestore.NewFSStore(dir).Put(ctx, ns, entry(id, "shell")))

	got, err := cachestore.NewFSStore(dir).Get(ctx, ns, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shell", string(got.Body))

	info, err := os.Stat(filepath.Join(dir, string(ns)))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := cachestore.NewMemoryStore()
	ctx := context.Background()
	ns := domain.CacheNamespace("fieldsync-v1")
	id := identity(t, "https://site.example.com/")

	require.NoError(t, store.Put(ctx, ns, entry(id, "shell")))
	got, err := store.Get(ctx, ns, id)
	require.NoError(t, err)
	got.Body[0] = 'X'

	again, err := store.Get(ctx, ns, id)
	require.NoError(t, err)
	assert.Equal(t, "shell", string(again.Body))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := cachestore.New(context.Background(), domain.CacheConfig{Driver: "redis"})
	assert.ErrorIs(t, err, domain.ErrUnknownDriver)
}
