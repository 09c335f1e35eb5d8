package ports

import (
	"context"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// BatchSyncer submits queued records to the server's batch endpoint.
//
//go:generate go run go.uber.org/mock/mockgen -source=syncer.go -destination=mocks/mock_syncer.go -package=mocks
type BatchSyncer interface {
	// Submit sends one batch and returns the IDs the server accepted.
	// A network failure or non-2xx status is returned as an error.
	Submit(ctx context.Context, batch *domain.BatchRequest) (*domain.BatchResult, error)
}
