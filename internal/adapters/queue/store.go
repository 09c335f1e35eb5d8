// Package queue implements the durable offline queue on database/sql.
package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

//go:embed schema.sql
var schema string

const table = "queued_records"

var columns = []string{"id", "kind", "payload", "state", "attempts", "last_error", "enqueued_at", "updated_at"}

// Store implements ports.OfflineQueue.
type Store struct {
	db          *sql.DB
	sq          sq.StatementBuilderType
	maxAttempts int
	now         func() time.Time
	newID       func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides correlation ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func newCorrelationID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Open connects to the queue database selected by driver and applies the schema.
func Open(ctx context.Context, driver, dsn string, maxAttempts int, opts ...Option) (*Store, error) {
	var (
		db  *sql.DB
		err error
		b   = sq.StatementBuilder
	)
	switch driver {
	case domain.QueueDriverSQLite, "":
		db, err = openSQLite(dsn)
	case domain.QueueDriverPostgres:
		db, err = sql.Open("pgx", dsn)
		b = b.PlaceholderFormat(sq.Dollar)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownDriver, "queue"), "driver", driver)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open queue database"), "driver", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(err, "failed to connect to queue database"), "driver", driver)
	}

	s := &Store{db: db, sq: b, maxAttempts: maxAttempts, now: time.Now, newID: newCorrelationID}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return nil, zerr.Wrap(err, "failed to create queue directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, zerr.With(zerr.Wrap(err, "failed to configure sqlite"), "pragma", pragma)
		}
	}
	return db, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return zerr.Wrap(err, "failed to apply queue schema")
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue stores a new pending record.
func (s *Store) Enqueue(ctx context.Context, kind domain.RecordKind, payload json.RawMessage) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", err
	}
	if err := domain.ValidatePayload(payload); err != nil {
		return "", zerr.With(err, "kind", string(kind))
	}

	id := s.newID()
	now := s.now().UTC().UnixNano()
	q := s.sq.Insert(table).Columns(columns...).
		Values(id, string(kind), string(payload), string(domain.StatePending), 0, "", now, now)
	if err := s.exec(ctx, q); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to enqueue record"), "kind", string(kind))
	}
	return id, nil
}

// ListPending returns pending records, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]domain.QueuedRecord, error) {
	q := s.sq.Select(columns...).From(table).
		Where(sq.Eq{"state": string(domain.StatePending)}).
		OrderBy("enqueued_at", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.query(ctx, q)
}

// List returns records in the given states, oldest first.
func (s *Store) List(ctx context.Context, states ...domain.DeliveryState) ([]domain.QueuedRecord, error) {
	q := s.sq.Select(columns...).From(table).OrderBy("enqueued_at", "id")
	if len(states) > 0 {
		names := make([]string, len(states))
		for i, st := range states {
			names[i] = string(st)
		}
		q = q.Where(sq.Eq{"state": names})
	}
	return s.query(ctx, q)
}

// MarkInFlight moves pending records to in-flight and returns the IDs it
// claimed. A record another run moved first is not returned.
func (s *Store) MarkInFlight(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := s.sq.Update(table).
		Set("state", string(domain.StateInFlight)).
		Set("updated_at", s.now().UTC().UnixNano()).
		Where(sq.Eq{"id": ids, "state": string(domain.StatePending)}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to build query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to mark records in flight")
	}
	defer func() { _ = rows.Close() }()

	var claimed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, zerr.Wrap(err, "failed to scan claimed record")
		}
		claimed = append(claimed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, "failed to mark records in flight")
	}
	return claimed, nil
}

// MarkDelivered removes acknowledged records. The server's acknowledgement
// is authoritative, so the record's current state does not matter.
func (s *Store) MarkDelivered(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.exec(ctx, s.sq.Delete(table).Where(sq.Eq{"id": ids})); err != nil {
		return zerr.Wrap(err, "failed to mark records delivered")
	}
	return nil
}

// MarkFailed records a failed attempt for each in-flight record in ids.
func (s *Store) MarkFailed(ctx context.Context, ids []string, reason string) ([]domain.QueuedRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	sel := s.sq.Select(columns...).From(table).
		Where(sq.Eq{"id": ids, "state": string(domain.StateInFlight)}).
		OrderBy("enqueued_at", "id").
		RunWith(tx)
	records, err := scanRecords(sel.QueryContext(ctx))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load in-flight records")
	}

	now := s.now().UTC()
	var terminal []domain.QueuedRecord
	for _, rec := range records {
		rec.Attempts++
		rec.LastError = reason
		rec.UpdatedAt = now
		rec.State = domain.StatePending
		if rec.Attempts >= s.maxAttempts {
			rec.State = domain.StateFailed
			terminal = append(terminal, rec)
		}

		upd := s.sq.Update(table).
			Set("state", string(rec.State)).
			Set("attempts", rec.Attempts).
			Set("last_error", reason).
			Set("updated_at", now.UnixNano()).
			Where(sq.Eq{"id": rec.ID}).
			RunWith(tx)
		if _, err := upd.ExecContext(ctx); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to record delivery failure"), "id", rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, zerr.Wrap(err, "failed to commit delivery failures")
	}
	return terminal, nil
}

// RequeueStale returns in-flight records last changed before cutoff to pending.
// Their attempt count is left unchanged since no answer was ever received.
func (s *Store) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	q := s.sq.Update(table).
		Set("state", string(domain.StatePending)).
		Set("updated_at", s.now().UTC().UnixNano()).
		Where(sq.Eq{"state": string(domain.StateInFlight)}).
		Where(sq.Lt{"updated_at": cutoff.UTC().UnixNano()})
	n, err := s.execCount(ctx, q)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to requeue stale records")
	}
	return n, nil
}

// Requeue moves a failed record back to pending with a fresh retry budget.
func (s *Store) Requeue(ctx context.Context, id string) error {
	q := s.sq.Update(table).
		Set("state", string(domain.StatePending)).
		Set("attempts", 0).
		Set("last_error", "").
		Set("updated_at", s.now().UTC().UnixNano()).
		Where(sq.Eq{"id": id, "state": string(domain.StateFailed)})
	n, err := s.execCount(ctx, q)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to requeue record"), "id", id)
	}
	if n == 0 {
		return s.explainMiss(ctx, id, domain.StatePending)
	}
	return nil
}

// Discard deletes a pending or failed record. In-flight records cannot be discarded.
func (s *Store) Discard(ctx context.Context, id string) error {
	q := s.sq.Delete(table).Where(sq.Eq{
		"id":    id,
		"state": []string{string(domain.StatePending), string(domain.StateFailed)},
	})
	n, err := s.execCount(ctx, q)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to discard record"), "id", id)
	}
	if n == 0 {
		return s.explainMiss(ctx, id, "discarded")
	}
	return nil
}

// explainMiss distinguishes a missing record from one in the wrong state.
func (s *Store) explainMiss(ctx context.Context, id string, target domain.DeliveryState) error {
	var state string
	q := s.sq.Select("state").From(table).Where(sq.Eq{"id": id}).RunWith(s.db)
	err := q.QueryRowContext(ctx).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return zerr.With(zerr.Wrap(domain.ErrRecordNotFound, "no such record"), "id", id)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to load record"), "id", id)
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidTransition, "record cannot change state"), "from", state), "to", string(target))
}

// Counts returns the number of records per state.
func (s *Store) Counts(ctx context.Context) (map[domain.DeliveryState]int, error) {
	q := s.sq.Select("state", "COUNT(*)").From(table).GroupBy("state").RunWith(s.db)
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to count records")
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.DeliveryState]int, len(domain.DeliveryStates))
	for _, st := range domain.DeliveryStates {
		counts[st] = 0
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, zerr.Wrap(err, "failed to scan record count")
		}
		counts[domain.DeliveryState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, zerr.Wrap(err, "failed to count records")
	}
	return counts, nil
}

type execer interface {
	ToSql() (string, []any, error)
}

func (s *Store) exec(ctx context.Context, q execer) error {
	_, err := s.execCount(ctx, q)
	return err
}

func (s *Store) execCount(ctx context.Context, q execer) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, zerr.Wrap(err, "failed to build query")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) query(ctx context.Context, q sq.SelectBuilder) ([]domain.QueuedRecord, error) {
	records, err := scanRecords(q.RunWith(s.db).QueryContext(ctx))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list records")
	}
	return records, nil
}

func scanRecords(rows *sql.Rows, err error) ([]domain.QueuedRecord, error) {
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.QueuedRecord
	for rows.Next() {
		var (
			rec                 domain.QueuedRecord
			kind, state, body   string
			enqueued, updatedAt int64
		)
		if err := rows.Scan(&rec.ID, &kind, &body, &state, &rec.Attempts, &rec.LastError, &enqueued, &updatedAt); err != nil {
			return nil, err
		}
		rec.Kind = domain.RecordKind(kind)
		rec.State = domain.DeliveryState(state)
		rec.Payload = json.RawMessage(body)
		rec.EnqueuedAt = time.Unix(0, enqueued).UTC()
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
