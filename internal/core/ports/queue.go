package ports

import (
	"context"
	"encoding/json"
	"time"

	"go.trai.ch/fieldsync/internal/core/domain"
)

// OfflineQueue is the durable store of records awaiting delivery.
// Records survive process restarts. Delivered records are removed.
//
//go:generate go run go.uber.org/mock/mockgen -source=queue.go -destination=mocks/mock_queue.go -package=mocks
type OfflineQueue interface {
	// Enqueue stores a new pending record and returns its correlation ID.
	Enqueue(ctx context.Context, kind domain.RecordKind, payload json.RawMessage) (string, error)

	// ListPending returns pending records, oldest first, up to limit (0 means no limit).
	ListPending(ctx context.Context, limit int) ([]domain.QueuedRecord, error)

	// List returns records in any of the given states, oldest first.
	// With no states it returns every record.
	List(ctx context.Context, states ...domain.DeliveryState) ([]domain.QueuedRecord, error)

	// MarkInFlight moves pending records to in-flight and returns the IDs it
	// moved. Records already claimed by another run are left out.
	MarkInFlight(ctx context.Context, ids []string) ([]string, error)

	// MarkDelivered removes acknowledged records from the queue.
	MarkDelivered(ctx context.Context, ids []string) error

	// MarkFailed records a failed delivery attempt. Records return to pending
	// until their attempts reach the queue's limit, then become failed.
	// It returns the records that became failed.
	MarkFailed(ctx context.Context, ids []string, reason string) ([]domain.QueuedRecord, error)

	// RequeueStale returns in-flight records last changed before cutoff to pending.
	RequeueStale(ctx context.Context, cutoff time.Time) (int, error)

	// Requeue moves a failed record back to pending with a fresh retry budget.
	Requeue(ctx context.Context, id string) error

	// Discard deletes a pending or failed record.
	Discard(ctx context.Context, id string) error

	// Counts returns the number of records per state.
	Counts(ctx context.Context) (map[domain.DeliveryState]int, error)
}
