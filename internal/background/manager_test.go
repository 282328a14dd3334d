package background

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
)

type fakeOps struct {
	mu          sync.Mutex
	discoverErr error
	release     chan struct{}
	limits      []int
	requests    []models.DiscoverRequest
}

func (f *fakeOps) Discover(ctx context.Context, req models.DiscoverRequest) (*models.DiscoverResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return &models.DiscoverResult{Success: true, LeadsFound: 2, LeadsSaved: 1, Leads: []models.DiscoveredLeadSummary{}}, nil
}

func (f *fakeOps) AnalyzeScrapedLeads(ctx context.Context, limit int) (*models.AnalyzeResult, error) {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	return &models.AnalyzeResult{Success: true, Analyzed: 0, Results: []models.AnalysisItemResult{}}, nil
}

func (f *fakeOps) Backfill(ctx context.Context, limit int) (*models.BackfillResult, error) {
	panic("store exploded")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestManager(t *testing.T, cfg *config.Config, ops Operations) (*TaskManagerImpl, *syncBuffer) {
	t.Helper()
	logger := logging.NewDiscardLogger()
	out := &syncBuffer{}
	tm := NewTaskManagerWithLogger(cfg, ops, logger, NewTaskCompletionLoggerWithWriter(logger, out))
	require.NoError(t, tm.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tm.Stop(ctx)
	})
	return tm, out
}

func waitForStatus(t *testing.T, tm *TaskManagerImpl, processID string, want TaskStatus) *TaskResult {
	t.Helper()
	var result *TaskResult
	require.Eventually(t, func() bool {
		r, err := tm.GetTaskResult(context.Background(), processID)
		if err != nil {
			return false
		}
		result = r
		return r.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return result
}

func TestDiscoverTaskSucceeds(t *testing.T) {
	ops := &fakeOps{}
	tm, out := newTestManager(t, config.Default(), ops)

	req := models.DiscoverRequest{URL: "https://arbetsformedlingen.se/platsbanken/annonser/1"}
	require.NoError(t, tm.SubmitDiscoverTask(context.Background(), "proc-1", req))

	result := waitForStatus(t, tm, "proc-1", TaskStatusSuccess)
	assert.Equal(t, TaskTypeDiscover, result.Type)
	assert.Empty(t, result.Error)
	require.NotNil(t, result.CompletedAt)
	require.NotNil(t, result.ProcessingTime)
	assert.Equal(t, req.URL, result.Metadata["url"])

	summary, ok := result.Data.(*models.DiscoverResult)
	require.True(t, ok)
	assert.Equal(t, 1, summary.LeadsSaved)

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "proc-1") }, time.Second, 10*time.Millisecond)
	var line TaskCompletionLog
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &line))
	assert.Equal(t, "SUCCESS", line.Status)
	assert.Equal(t, "discover", line.Operation)
}

func TestTaskFailureIsRecorded(t *testing.T) {
	ops := &fakeOps{discoverErr: errors.New("fetch failed")}
	tm, _ := newTestManager(t, config.Default(), ops)

	require.NoError(t, tm.SubmitDiscoverTask(context.Background(), "proc-err", models.DiscoverRequest{}))

	result := waitForStatus(t, tm, "proc-err", TaskStatusFailure)
	assert.Equal(t, "fetch failed", result.Error)
	assert.Nil(t, result.Data)
}

func TestTaskPanicBecomesFailure(t *testing.T) {
	tm, _ := newTestManager(t, config.Default(), &fakeOps{})

	require.NoError(t, tm.SubmitBackfillTask(context.Background(), "proc-panic", 5))

	result := waitForStatus(t, tm, "proc-panic", TaskStatusFailure)
	assert.Contains(t, result.Error, "store exploded")
	assert.True(t, tm.IsHealthy())
}

func TestAnalyzeTaskPassesLimit(t *testing.T) {
	ops := &fakeOps{}
	tm, _ := newTestManager(t, config.Default(), ops)

	require.NoError(t, tm.SubmitAnalyzeTask(context.Background(), "proc-analyze", 7))
	waitForStatus(t, tm, "proc-analyze", TaskStatusSuccess)

	ops.mu.Lock()
	defer ops.mu.Unlock()
	assert.Equal(t, []int{7}, ops.limits)
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.BackgroundTasks.MaxWorkers = 1
	cfg.BackgroundTasks.QueueSize = 1

	ops := &fakeOps{release: make(chan struct{})}
	tm, _ := newTestManager(t, cfg, ops)
	defer close(ops.release)

	ctx := context.Background()
	require.NoError(t, tm.SubmitDiscoverTask(ctx, "running", models.DiscoverRequest{}))
	waitForStatus(t, tm, "running", TaskStatusProcessing)

	require.NoError(t, tm.SubmitDiscoverTask(ctx, "queued", models.DiscoverRequest{}))
	err := tm.SubmitDiscoverTask(ctx, "rejected", models.DiscoverRequest{})
	assert.ErrorIs(t, err, ErrQueueFull)

	_, err = tm.GetTaskStatus(ctx, "rejected")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	status, err := tm.GetTaskStatus(ctx, "queued")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusAccepted, status)
}

func TestTaskTimeoutCancelsOperation(t *testing.T) {
	cfg := config.Default()
	cfg.BackgroundTasks.TaskTimeout = 50 * time.Millisecond

	ops := &fakeOps{release: make(chan struct{})}
	tm, _ := newTestManager(t, cfg, ops)
	defer close(ops.release)

	require.NoError(t, tm.SubmitDiscoverTask(context.Background(), "slow", models.DiscoverRequest{}))

	result := waitForStatus(t, tm, "slow", TaskStatusFailure)
	assert.Contains(t, result.Error, context.DeadlineExceeded.Error())
}

func TestSubmitBeforeStart(t *testing.T) {
	tm := NewTaskManager(config.Default(), &fakeOps{}, logging.NewDiscardLogger())

	assert.False(t, tm.IsHealthy())
	err := tm.SubmitAnalyzeTask(context.Background(), "early", 1)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStopIsIdempotent(t *testing.T) {
	tm := NewTaskManager(config.Default(), &fakeOps{}, logging.NewDiscardLogger())
	require.NoError(t, tm.Start(context.Background()))
	assert.Error(t, tm.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tm.Stop(ctx))
	require.NoError(t, tm.Stop(ctx))
	assert.False(t, tm.IsHealthy())

	err := tm.SubmitBackfillTask(context.Background(), "late", 1)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestValidateTaskManagerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.BackgroundTasks.MaxWorkers = 0
	cfg.BackgroundTasks.QueueSize = 0
	workers, queue, err := validateTaskManagerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxWorkers, workers)
	assert.Equal(t, DefaultMaxQueueSize, queue)

	cfg.BackgroundTasks.MaxWorkers = MaxWorkers + 1
	_, _, err = validateTaskManagerConfig(cfg)
	assert.Error(t, err)

	cfg.BackgroundTasks.MaxWorkers = 4
	cfg.BackgroundTasks.QueueSize = MaxQueueSize + 1
	_, _, err = validateTaskManagerConfig(cfg)
	assert.Error(t, err)
}

func TestInMemoryTaskStoreCleanupKeepsRunning(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryTaskStore()
	old := time.Now().Add(-2 * time.Hour)

	require.NoError(t, s.Store(ctx, &TaskResult{ProcessID: "done", Status: TaskStatusSuccess, CreatedAt: old}))
	require.NoError(t, s.Store(ctx, &TaskResult{ProcessID: "busy", Status: TaskStatusProcessing, CreatedAt: old}))
	require.NoError(t, s.Store(ctx, &TaskResult{ProcessID: "fresh", Status: TaskStatusFailure, CreatedAt: time.Now()}))

	require.NoError(t, s.Cleanup(ctx, time.Hour))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "fresh", list[0].ProcessID)
	assert.Equal(t, "busy", list[1].ProcessID)
}

func TestInMemoryTaskStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryTaskStore()
	require.NoError(t, s.Store(ctx, &TaskResult{ProcessID: "a", Status: TaskStatusAccepted, Metadata: map[string]interface{}{"limit": 1}}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Status = TaskStatusSuccess
	got.Metadata["limit"] = 99

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusAccepted, again.Status)
	assert.Equal(t, 1, again.Metadata["limit"])

	assert.ErrorIs(t, s.Update(ctx, &TaskResult{ProcessID: "missing"}), ErrTaskNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrTaskNotFound)
}
