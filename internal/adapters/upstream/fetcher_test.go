package upstream_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fieldsync/internal/adapters/upstream"
	"go.trai.ch/fieldsync/internal/core/domain"
)

func TestFetcher_CapturesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"v1"`)
		_, _ = io.WriteString(w, `{"projects":[]}`)
	}))
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, srv.URL+"/api/projects", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Connection", "keep-alive")

	got, err := upstream.New(time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, `{"projects":[]}`, string(got.Body))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, srv.URL+"/api/projects", got.Identity.URL)
	assert.False(t, got.CapturedAt.IsZero())
}

func TestFetcher_ForwardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"note":"slab poured"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	req := httptest.NewRequest(http.MethodPost, srv.URL+"/api/reports", strings.NewReader(`{"note":"slab poured"}`))
	got, err := upstream.New(time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, got.Status)
}

func TestFetcher_NonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, srv.URL+"/api/projects", nil)
	got, err := upstream.New(time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
}

func TestFetcher_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, srv.URL+"/dashboard", nil)
	got, err := upstream.New(time.Second).Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, got.Status)
	assert.Equal(t, "/login", got.Header.Get("Location"))
}

func TestFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req := httptest.NewRequest(http.MethodGet, url+"/api/projects", nil)
	_, err := upstream.New(time.Second).Fetch(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
