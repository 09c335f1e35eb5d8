package ports

import (
	"context"
	"net/http"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// Fetcher performs requests against the application origin.
//
//go:generate go run go.uber.org/mock/mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch forwards req to the origin and captures the full response.
	// A transport failure is returned as an error wrapping domain.ErrUpstreamUnavailable.
	// Non-2xx responses are returned, not treated as errors.
	Fetch(ctx context.Context, req *http.Request) (*domain.CacheEntry, error)
}
