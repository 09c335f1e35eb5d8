package reconciler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fieldsync/internal/adapters/metrics"
	"go.trai.ch/fieldsync/internal/adapters/queue"
	"go.trai.ch/fieldsync/internal/adapters/syncclient"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
	"go.trai.ch/fieldsync/internal/engine/reconciler"
	"go.uber.org/mock/gomock"
)

// batchServer acknowledges every attendance event it receives unless failing
// is set. With commitThenFail it stores the events before answering 500.
// Stored events are keyed by clientId, so a resubmission stores nothing new.
type batchServer struct {
	mu             sync.Mutex
	failing        bool
	commitThenFail bool
	received       []string
	stored         map[string]bool
}

func (s *batchServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Path != "/api/sync/batch" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if s.failing {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}

	var req struct {
		AttendanceEvents []struct {
			ClientID string `json:"clientId"`
		} `json:"attendanceEvents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.stored == nil {
		s.stored = map[string]bool{}
	}
	res := domain.BatchResult{AttendanceEvents: []string{}}
	for _, ev := range req.AttendanceEvents {
		s.received = append(s.received, ev.ClientID)
		s.stored[ev.ClientID] = true
		res.AttendanceEvents = append(res.AttendanceEvents, ev.ClientID)
	}
	if s.commitThenFail {
		http.Error(w, "response lost", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (s *batchServer) persisted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.stored))
	for id := range s.stored {
		out = append(out, id)
	}
	return out
}

func (s *batchServer) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func setupE2E(t *testing.T, srv http.Handler) (*queue.Store, *reconciler.Reconciler) {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	q := openQueue(t, filepath.Join(t.TempDir(), domain.QueueFileName))
	return q, newReconciler(t, q, ts.URL)
}

func openQueue(t *testing.T, path string) *queue.Store {
	t.Helper()
	q, err := queue.Open(context.Background(), domain.QueueDriverSQLite, path, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func newReconciler(t *testing.T, q ports.OfflineQueue, serverURL string) *reconciler.Reconciler {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := syncclient.New(serverURL, "/api/sync/batch", 5*time.Second)
	return reconciler.New(q, client, quietLogger(ctrl), metrics.New(), syncCfg)
}

func enqueueAttendance(t *testing.T, q *queue.Store, workers ...string) []string {
	t.Helper()
	var ids []string
	for _, w := range workers {
		id, err := q.Enqueue(context.Background(), domain.KindAttendanceEvent,
			json.RawMessage(`{"workerId":"`+w+`","type":"CHECK_IN","latitude":12.9716,"longitude":77.5946}`))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestE2E_TwoAttendanceEventsDelivered(t *testing.T) {
	srv := &batchServer{}
	q, r := setupE2E(t, srv)
	ids := enqueueAttendance(t, q, "w1", "w2")

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, map[string]int{"attendance-event": 2}, report.ByKind)

	remaining, err := q.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.ElementsMatch(t, ids, srv.got())
}

func TestE2E_ServerErrorLeavesRecordsPendingWithoutDuplication(t *testing.T) {
	srv := &batchServer{failing: true}
	q, r := setupE2E(t, srv)
	ids := enqueueAttendance(t, q, "w1", "w2")

	report, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBatchRejected)
	assert.True(t, report.WillRetry)
	assert.Equal(t, 2, report.Requeued)

	pending, err := q.ListPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, rec := range pending {
		assert.Equal(t, domain.StatePending, rec.State)
		assert.Equal(t, 1, rec.Attempts)
	}

	srv.mu.Lock()
	srv.failing = false
	srv.mu.Unlock()

	report, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)

	remaining, err := q.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.ElementsMatch(t, ids, srv.got(), "each record reaches the server exactly once")
}

func TestE2E_ResubmittingACommittedBatchIsIdempotent(t *testing.T) {
	srv := &batchServer{commitThenFail: true}
	q, r := setupE2E(t, srv)
	ids := enqueueAttendance(t, q, "w1", "w2")

	report, err := r.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrBatchRejected)
	assert.True(t, report.WillRetry)
	assert.ElementsMatch(t, ids, srv.persisted(), "the server kept the batch")

	pending, err := q.ListPending(context.Background(), 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, recordIDs(pending))

	srv.mu.Lock()
	srv.commitThenFail = false
	srv.mu.Unlock()

	report, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Delivered)

	remaining, err := q.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.ElementsMatch(t, ids, srv.persisted(), "resubmission reused the same client IDs")
	assert.Len(t, srv.got(), 4)
}

func recordIDs(recs []domain.QueuedRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// interleavedQueue calls between once, after listing pending records and
// before the caller claims them.
type interleavedQueue struct {
	*queue.Store
	once    sync.Once
	between func()
}

func (q *interleavedQueue) ListPending(ctx context.Context, limit int) ([]domain.QueuedRecord, error) {
	recs, err := q.Store.ListPending(ctx, limit)
	q.once.Do(q.between)
	return recs, err
}

func TestE2E_TwoProcessesNeverSubmitTheSameRecord(t *testing.T) {
	srv := &batchServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	path := filepath.Join(t.TempDir(), domain.QueueFileName)
	daemonQueue := openQueue(t, path)
	cliQueue := openQueue(t, path)
	ids := enqueueAttendance(t, daemonQueue, "w1", "w2")

	cli := newReconciler(t, cliQueue, ts.URL)
	var cliReport *domain.SyncReport
	daemon := newReconciler(t, &interleavedQueue{
		Store: daemonQueue,
		between: func() {
			var err error
			cliReport, err = cli.Run(context.Background())
			require.NoError(t, err)
		},
	}, ts.URL)

	report, err := daemon.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Submitted, "records were claimed by the other run")
	require.NotNil(t, cliReport)
	assert.Equal(t, 2, cliReport.Delivered)

	remaining, err := daemonQueue.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.ElementsMatch(t, ids, srv.got(), "each record reaches the server exactly once")
}
