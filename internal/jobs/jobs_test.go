package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ordena_backend/internal/notification"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) FindLowStock(ctx context.Context, loc shared.LocationFilter) ([]product.Product, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).([]product.Product), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) HasUnread(ctx context.Context, topic string, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, topic, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockNotifier) NotifyWarehouse(ctx context.Context, warehouseID uuid.UUID, msg notification.Message) error {
	return m.Called(ctx, warehouseID, msg).Error(0)
}

func (m *mockNotifier) NotifyBranch(ctx context.Context, branchID uuid.UUID, msg notification.Message) error {
	return m.Called(ctx, branchID, msg).Error(0)
}

type cleanerFunc func(ctx context.Context) (int64, error)

func (f cleanerFunc) CleanupOrphans(ctx context.Context) (int64, error) { return f(ctx) }

type jobRuns struct {
	metrics.Nop
	mu   sync.Mutex
	runs map[string][]error
}

func (r *jobRuns) RecordJobRun(job string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string][]error{}
	}
	r.runs[job] = append(r.runs[job], err)
}

func TestLowStockJobWarnsEachLocationOnce(t *testing.T) {
	wh, br := uuid.New(), uuid.New()
	inWarehouse := product.Product{Name: "Arroz", InternalCode: "ALI-ARR-001", Stock: 2, MinStock: 5, WarehouseID: &wh}
	inWarehouse.ID = uuid.New()
	inBranch := product.Product{Name: "Aceite", InternalCode: "ALI-ACE-001", Stock: 0, MinStock: 3, BranchID: &br}
	inBranch.ID = uuid.New()
	alreadyWarned := product.Product{Name: "Sal", InternalCode: "ALI-SAL-001", Stock: 1, MinStock: 4, WarehouseID: &wh}
	alreadyWarned.ID = uuid.New()

	finder := new(mockFinder)
	finder.On("FindLowStock", mock.Anything, shared.LocationFilter{}).
		Return([]product.Product{inWarehouse, inBranch, alreadyWarned}, nil)

	notifier := new(mockNotifier)
	notifier.On("HasUnread", mock.Anything, notification.TopicLowStock, inWarehouse.ID).Return(false, nil)
	notifier.On("HasUnread", mock.Anything, notification.TopicLowStock, inBranch.ID).Return(false, nil)
	notifier.On("HasUnread", mock.Anything, notification.TopicLowStock, alreadyWarned.ID).Return(true, nil)
	notifier.On("NotifyWarehouse", mock.Anything, wh, mock.MatchedBy(func(msg notification.Message) bool {
		return msg.Topic == notification.TopicLowStock && *msg.ProductID == inWarehouse.ID &&
			msg.Type == notification.TypeWarning
	})).Return(nil).Once()
	notifier.On("NotifyBranch", mock.Anything, br, mock.MatchedBy(func(msg notification.Message) bool {
		return *msg.ProductID == inBranch.ID
	})).Return(errors.New("no recipients")).Once()

	job := NewLowStockJob(finder, notifier, zap.NewNop())
	require.NoError(t, job.Run(context.Background()))

	notifier.AssertExpectations(t)
	notifier.AssertNotCalled(t, "NotifyWarehouse", mock.Anything, wh, mock.MatchedBy(func(msg notification.Message) bool {
		return *msg.ProductID == alreadyWarned.ID
	}))
}

func TestLowStockJobStopsOnLookupError(t *testing.T) {
	finder := new(mockFinder)
	finder.On("FindLowStock", mock.Anything, shared.LocationFilter{}).Return([]product.Product{}, errors.New("db down"))

	job := NewLowStockJob(finder, new(mockNotifier), zap.NewNop())
	assert.EqualError(t, job.Run(context.Background()), "db down")
}

func TestSchedulerRunNowRecordsOutcome(t *testing.T) {
	runs := &jobRuns{}
	s := NewScheduler(runs, zap.NewNop())

	calls := 0
	ok := NewReportCleanupJob(cleanerFunc(func(ctx context.Context) (int64, error) {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 3, nil
	}))
	require.NoError(t, s.RunNow(ok))
	assert.Equal(t, 1, calls)

	failing := NewReportCleanupJob(cleanerFunc(func(context.Context) (int64, error) {
		return 0, errors.New("boom")
	}))
	assert.Error(t, s.RunNow(failing))

	assert.Equal(t, []error{nil, errors.New("boom")}, runs.runs["report_cleanup"])
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop())
	job := NewReportCleanupJob(cleanerFunc(func(context.Context) (int64, error) { return 0, nil }))

	assert.NoError(t, s.Register("", job))
	assert.Empty(t, s.cron.Entries())

	assert.Error(t, s.Register("every tuesday", job))
	require.NoError(t, s.Register("@daily", job))
	assert.Len(t, s.cron.Entries(), 1)

	s.Start()
	s.Stop()
}

func TestCronLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cl := NewCronLogger(zap.New(core))

	cl.Info("schedule", "entry", 1, "next")
	cl.Error(errors.New("panic"), "job failed", "entry", 2)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, map[string]interface{}{"entry": int64(1), "next": "MISSING_VALUE"}, entries[0].ContextMap())
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "panic", entries[1].ContextMap()["error"])
}
