package reconciler_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fieldsync/internal/adapters/metrics"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports/mocks"
	"go.trai.ch/fieldsync/internal/engine/reconciler"
	"go.uber.org/mock/gomock"
)

var syncCfg = domain.SyncConfig{
	Interval:    time.Minute,
	BatchSize:   100,
	MaxAttempts: 8,
	StaleAfter:  5 * time.Minute,
	MaxBackoff:  5 * time.Minute,
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

func record(id string, kind domain.RecordKind, payload string) domain.QueuedRecord {
	return domain.QueuedRecord{
		ID:      id,
		Kind:    kind,
		Payload: json.RawMessage(payload),
		State:   domain.StatePending,
	}
}

func clientID(t *testing.T, payload json.RawMessage) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(payload, &body))
	id, _ := body["clientId"].(string)
	return id
}

func TestRun_Idle(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	syncer := mocks.NewMockBatchSyncer(ctrl)
	r := reconciler.New(q, syncer, quietLogger(ctrl), metrics.New(), syncCfg)

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return(nil, nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{}, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Submitted)
	assert.False(t, report.WillRetry)

	last, ok := r.Last()
	require.True(t, ok)
	assert.Same(t, report, last.Report)
	assert.NoError(t, last.Err)
}

func TestRun_RecoversStaleRecordsFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := reconciler.New(q, mocks.NewMockBatchSyncer(ctrl), quietLogger(ctrl), metrics.New(), syncCfg,
		reconciler.WithClock(func() time.Time { return now }))

	gomock.InOrder(
		q.EXPECT().RequeueStale(gomock.Any(), now.Add(-5*time.Minute)).Return(2, nil),
		q.EXPECT().ListPending(gomock.Any(), 100).Return(nil, nil),
	)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{domain.StatePending: 0}, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Recovered)
}

func TestRun_DeliversAcknowledgedAndRetriesTheRest(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	syncer := mocks.NewMockBatchSyncer(ctrl)
	r := reconciler.New(q, syncer, quietLogger(ctrl), metrics.New(), syncCfg)

	pending := []domain.QueuedRecord{
		record("att-1", domain.KindAttendanceEvent, `{"workerId":"w1","type":"CHECK_IN"}`),
		record("dpr-1", domain.KindProgressReport, `{"projectId":"p1","summary":"slab poured"}`),
		record("mat-1", domain.KindMaterialRequest, `{"item":"rebar","qty":40}`),
	}

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return(pending, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), []string{"att-1", "dpr-1", "mat-1"}).Return([]string{"att-1", "dpr-1", "mat-1"}, nil)
	syncer.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch *domain.BatchRequest) (*domain.BatchResult, error) {
			require.Len(t, batch.AttendanceEvents, 1)
			require.Len(t, batch.ProgressReports, 1)
			require.Len(t, batch.MaterialRequests, 1)
			assert.Equal(t, "att-1", clientID(t, batch.AttendanceEvents[0]))
			assert.Equal(t, "dpr-1", clientID(t, batch.ProgressReports[0]))
			return &domain.BatchResult{
				AttendanceEvents: []string{"att-1"},
				ProgressReports:  []string{"dpr-1"},
			}, nil
		})
	q.EXPECT().MarkDelivered(gomock.Any(), []string{"att-1", "dpr-1"}).Return(nil)
	q.EXPECT().MarkFailed(gomock.Any(), []string{"mat-1"}, reconciler.ReasonNotAcknowledged).Return(nil, nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{domain.StatePending: 1}, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Submitted)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 1, report.Requeued)
	assert.True(t, report.WillRetry)
	assert.Equal(t, map[string]int{"attendance-event": 1, "progress-report": 1}, report.ByKind)
}

func TestRun_SubmitFailureReturnsRecordsToQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	syncer := mocks.NewMockBatchSyncer(ctrl)
	r := reconciler.New(q, syncer, quietLogger(ctrl), metrics.New(), syncCfg)

	pending := []domain.QueuedRecord{
		record("a", domain.KindAttendanceEvent, `{"workerId":"w1"}`),
		record("b", domain.KindAttendanceEvent, `{"workerId":"w2"}`),
	}
	submitErr := errors.Join(domain.ErrBatchRejected, errors.New("HTTP 500"))

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return(pending, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), []string{"a", "b"}).Return([]string{"a", "b"}, nil)
	syncer.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, submitErr)
	q.EXPECT().MarkFailed(gomock.Any(), []string{"a", "b"}, submitErr.Error()).
		Return([]domain.QueuedRecord{{ID: "b", Kind: domain.KindAttendanceEvent, State: domain.StateFailed, Attempts: 8}}, nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{domain.StatePending: 1, domain.StateFailed: 1}, nil)

	report, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBatchRejected))
	assert.Equal(t, 2, report.Submitted)
	assert.Equal(t, 0, report.Delivered)
	assert.Equal(t, 1, report.Requeued)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"b"}, report.FailedIDs)
	assert.True(t, report.WillRetry)
	assert.NotEmpty(t, report.LastError)
}

func TestRun_CancelledSubmitStillSettlesRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	syncer := mocks.NewMockBatchSyncer(ctrl)
	r := reconciler.New(q, syncer, quietLogger(ctrl), metrics.New(), syncCfg)

	ctx, cancel := context.WithCancel(context.Background())

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return([]domain.QueuedRecord{record("a", domain.KindMaterialRequest, `{}`)}, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), []string{"a"}).Return([]string{"a"}, nil)
	syncer.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *domain.BatchRequest) (*domain.BatchResult, error) {
			cancel()
			return nil, ctx.Err()
		})
	q.EXPECT().MarkFailed(gomock.Any(), []string{"a"}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []string, _ string) ([]domain.QueuedRecord, error) {
			assert.NoError(t, ctx.Err())
			return nil, nil
		})
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{}, nil)

	_, err := r.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	syncer := mocks.NewMockBatchSyncer(ctrl)
	r := reconciler.New(q, syncer, quietLogger(ctrl), metrics.New(), syncCfg)

	started := make(chan struct{})
	release := make(chan struct{})

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return([]domain.QueuedRecord{record("a", domain.KindAttendanceEvent, `{}`)}, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), gomock.Any()).Return([]string{"a"}, nil)
	syncer.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *domain.BatchRequest) (*domain.BatchResult, error) {
			close(started)
			<-release
			return &domain.BatchResult{AttendanceEvents: []string{"a"}}, nil
		})
	q.EXPECT().MarkDelivered(gomock.Any(), []string{"a"}).Return(nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	<-started
	_, err := r.Run(context.Background())
	assert.True(t, errors.Is(err, domain.ErrSyncInProgress))

	close(release)
	require.NoError(t, <-done)
}

func TestRun_SkipsRecordsClaimedByAnotherRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	syncer := mocks.NewMockBatchSyncer(ctrl)
	r := reconciler.New(q, syncer, quietLogger(ctrl), metrics.New(), syncCfg)

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return([]domain.QueuedRecord{
		record("a", domain.KindAttendanceEvent, `{"workerId":"w1"}`),
		record("b", domain.KindAttendanceEvent, `{"workerId":"w2"}`),
	}, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), []string{"a", "b"}).Return([]string{"b"}, nil)
	syncer.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, batch *domain.BatchRequest) (*domain.BatchResult, error) {
			require.Len(t, batch.AttendanceEvents, 1)
			assert.Equal(t, "b", clientID(t, batch.AttendanceEvents[0]))
			return &domain.BatchResult{AttendanceEvents: []string{"b"}}, nil
		})
	q.EXPECT().MarkDelivered(gomock.Any(), []string{"b"}).Return(nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{}, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted)
	assert.Equal(t, 1, report.Delivered)
}

func TestRun_NothingClaimedSubmitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	r := reconciler.New(q, mocks.NewMockBatchSyncer(ctrl), quietLogger(ctrl), metrics.New(), syncCfg)

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return([]domain.QueuedRecord{record("a", domain.KindAttendanceEvent, `{}`)}, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), []string{"a"}).Return(nil, nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{}, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Submitted)
}

func TestRun_MalformedPayloadIsFailedWithoutSubmitting(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockOfflineQueue(ctrl)
	r := reconciler.New(q, mocks.NewMockBatchSyncer(ctrl), quietLogger(ctrl), metrics.New(), syncCfg)

	q.EXPECT().RequeueStale(gomock.Any(), gomock.Any()).Return(0, nil)
	q.EXPECT().ListPending(gomock.Any(), 100).Return([]domain.QueuedRecord{record("a", domain.KindAttendanceEvent, `[1,2]`)}, nil)
	q.EXPECT().MarkInFlight(gomock.Any(), []string{"a"}).Return([]string{"a"}, nil)
	q.EXPECT().MarkFailed(gomock.Any(), []string{"a"}, domain.ErrInvalidPayload.Error()).Return(nil, nil)
	q.EXPECT().Counts(gomock.Any()).Return(map[domain.DeliveryState]int{}, nil)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Submitted)
	assert.Equal(t, 1, report.Requeued)
}

func TestBackoff(t *testing.T) {
	r := reconciler.New(nil, nil, nil, nil, syncCfg)

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 5 * time.Minute, 5 * time.Minute}
	for failures, d := range want {
		assert.Equal(t, d, r.Backoff(failures), "after %d failures", failures)
	}
}
