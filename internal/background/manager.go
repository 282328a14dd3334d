package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
)

// Task manager configuration constants
const (
	DefaultMaxWorkers   = 2
	DefaultMaxQueueSize = 20

	MinWorkers   = 1
	MinQueueSize = 1

	MaxWorkers   = 64
	MaxQueueSize = 1000
)

// Operations are the hunter operations a task can run
type Operations interface {
	Discover(ctx context.Context, req models.DiscoverRequest) (*models.DiscoverResult, error)
	AnalyzeScrapedLeads(ctx context.Context, limit int) (*models.AnalyzeResult, error)
	Backfill(ctx context.Context, limit int) (*models.BackfillResult, error)
}

// TaskManager defines the interface for managing background tasks
type TaskManager interface {
	// Start starts the task manager
	Start(ctx context.Context) error

	// Stop stops the task manager gracefully
	Stop(ctx context.Context) error

	// SubmitDiscoverTask queues a discovery run
	SubmitDiscoverTask(ctx context.Context, processID string, request models.DiscoverRequest) error

	// SubmitAnalyzeTask queues an analysis batch
	SubmitAnalyzeTask(ctx context.Context, processID string, limit int) error

	// SubmitBackfillTask queues a backfill pass
	SubmitBackfillTask(ctx context.Context, processID string, limit int) error

	// GetTaskResult retrieves the result of a task by process ID
	GetTaskResult(ctx context.Context, processID string) (*TaskResult, error)

	// GetTaskStatus retrieves the status of a task by process ID
	GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error)

	// ListTasks lists all known tasks (for monitoring)
	ListTasks(ctx context.Context) ([]*TaskResult, error)

	// IsHealthy checks if the task manager is healthy
	IsHealthy() bool
}

// TaskManagerImpl implements the TaskManager interface
type TaskManagerImpl struct {
	config       *config.Config
	ops          Operations
	store        TaskStore
	logger       *TaskCompletionLogger
	appLogger    logging.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	running      bool
	taskChan     chan *TaskExecution
	maxWorkers   int
	maxQueueSize int
}

// TaskExecution represents a task execution context
type TaskExecution struct {
	ProcessID   string
	Type        TaskType
	Context     context.Context
	Cancel      context.CancelFunc
	ExecuteFunc func(context.Context) (interface{}, error)
}

// validateTaskManagerConfig validates and returns safe configuration values
func validateTaskManagerConfig(cfg *config.Config) (maxWorkers, maxQueueSize int, err error) {
	maxWorkers = cfg.BackgroundTasks.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	} else if maxWorkers < MinWorkers {
		return 0, 0, fmt.Errorf("worker pool size (%d) is below minimum (%d)", maxWorkers, MinWorkers)
	} else if maxWorkers > MaxWorkers {
		return 0, 0, fmt.Errorf("worker pool size (%d) exceeds maximum (%d)", maxWorkers, MaxWorkers)
	}

	maxQueueSize = cfg.BackgroundTasks.QueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = DefaultMaxQueueSize
	} else if maxQueueSize < MinQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) is below minimum (%d)", maxQueueSize, MinQueueSize)
	} else if maxQueueSize > MaxQueueSize {
		return 0, 0, fmt.Errorf("queue size (%d) exceeds maximum (%d)", maxQueueSize, MaxQueueSize)
	}

	return maxWorkers, maxQueueSize, nil
}

// NewTaskManager creates a new task manager running ops
func NewTaskManager(cfg *config.Config, ops Operations, logger logging.Logger) *TaskManagerImpl {
	return NewTaskManagerWithLogger(cfg, ops, logger, NewTaskCompletionLogger(logger))
}

// NewTaskManagerWithLogger is NewTaskManager with an explicit completion logger
func NewTaskManagerWithLogger(cfg *config.Config, ops Operations, logger logging.Logger, completion *TaskCompletionLogger) *TaskManagerImpl {
	maxWorkers, maxQueueSize, err := validateTaskManagerConfig(cfg)
	if err != nil {
		logger.Warn("Task manager configuration validation failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		maxWorkers = DefaultMaxWorkers
		maxQueueSize = DefaultMaxQueueSize
	}

	logger.Info("Task manager configuration initialized", map[string]interface{}{
		"max_workers":    maxWorkers,
		"max_queue_size": maxQueueSize,
		"using_defaults": err != nil,
	})

	return &TaskManagerImpl{
		config:       cfg,
		ops:          ops,
		store:        NewInMemoryTaskStore(),
		logger:       completion,
		appLogger:    logger,
		maxWorkers:   maxWorkers,
		maxQueueSize: maxQueueSize,
		taskChan:     make(chan *TaskExecution, maxQueueSize),
	}
}

// Start starts the task manager
func (tm *TaskManagerImpl) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.running {
		return fmt.Errorf("task manager already running")
	}

	tm.ctx, tm.cancel = context.WithCancel(ctx)
	tm.running = true

	for i := 0; i < tm.maxWorkers; i++ {
		tm.wg.Add(1)
		go tm.worker(i)
	}

	tm.wg.Add(1)
	go tm.cleanupRoutine()

	tm.appLogger.Info("Task manager started", map[string]interface{}{
		"max_workers": tm.maxWorkers,
	})
	return nil
}

// Stop cancels running tasks and waits for the workers until ctx expires
func (tm *TaskManagerImpl) Stop(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.running {
		return nil
	}

	tm.appLogger.Info("Stopping task manager...", nil)

	tm.cancel()
	close(tm.taskChan)

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		tm.appLogger.Info("Task manager stopped gracefully", nil)
	case <-ctx.Done():
		tm.appLogger.Warn("Task manager shutdown timed out", nil)
	}

	tm.running = false
	return nil
}

// SubmitDiscoverTask queues a discovery run
func (tm *TaskManagerImpl) SubmitDiscoverTask(ctx context.Context, processID string, request models.DiscoverRequest) error {
	metadata := map[string]interface{}{}
	if request.URL != "" {
		metadata["url"] = request.URL
	}
	if len(request.URLs) > 0 {
		metadata["url_count"] = len(request.URLs)
	}

	return tm.submit(ctx, processID, TaskTypeDiscover, metadata, func(execCtx context.Context) (interface{}, error) {
		result, err := tm.ops.Discover(execCtx, request)
		if err != nil {
			return nil, err
		}
		tm.logger.LogTaskMetrics(processID, TaskTypeDiscover, map[string]interface{}{
			"leads_found": result.LeadsFound,
			"leads_saved": result.LeadsSaved,
			"skipped":     result.Skipped,
		})
		return result, nil
	})
}

// SubmitAnalyzeTask queues an analysis batch
func (tm *TaskManagerImpl) SubmitAnalyzeTask(ctx context.Context, processID string, limit int) error {
	metadata := map[string]interface{}{"limit": limit}

	return tm.submit(ctx, processID, TaskTypeAnalyze, metadata, func(execCtx context.Context) (interface{}, error) {
		result, err := tm.ops.AnalyzeScrapedLeads(execCtx, limit)
		if err != nil {
			return nil, err
		}
		tm.logger.LogTaskMetrics(processID, TaskTypeAnalyze, map[string]interface{}{
			"analyzed": result.Analyzed,
		})
		return result, nil
	})
}

// SubmitBackfillTask queues a backfill pass
func (tm *TaskManagerImpl) SubmitBackfillTask(ctx context.Context, processID string, limit int) error {
	metadata := map[string]interface{}{"limit": limit}

	return tm.submit(ctx, processID, TaskTypeBackfill, metadata, func(execCtx context.Context) (interface{}, error) {
		result, err := tm.ops.Backfill(execCtx, limit)
		if err != nil {
			return nil, err
		}
		tm.logger.LogTaskMetrics(processID, TaskTypeBackfill, map[string]interface{}{
			"checked": result.Checked,
			"updated": result.Updated,
		})
		return result, nil
	})
}

// submit stores the accepted result and hands the execution to the pool.
// The read lock keeps Stop from closing the channel mid-send.
func (tm *TaskManagerImpl) submit(ctx context.Context, processID string, taskType TaskType, metadata map[string]interface{}, run func(context.Context) (interface{}, error)) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if !tm.running || tm.ctx.Err() != nil {
		return ErrNotRunning
	}

	result := &TaskResult{
		ProcessID: processID,
		Type:      taskType,
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}
	if err := tm.store.Store(ctx, result); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}

	tm.logger.LogTaskAccepted(processID, taskType)

	taskCtx, cancelFunc := tm.taskContext()
	execution := &TaskExecution{
		ProcessID:   processID,
		Type:        taskType,
		Context:     taskCtx,
		Cancel:      cancelFunc,
		ExecuteFunc: run,
	}

	select {
	case tm.taskChan <- execution:
		return nil
	case <-ctx.Done():
		cancelFunc()
		_ = tm.store.Delete(context.Background(), processID)
		return ctx.Err()
	default:
		cancelFunc()
		_ = tm.store.Delete(context.Background(), processID)
		return ErrQueueFull
	}
}

func (tm *TaskManagerImpl) taskContext() (context.Context, context.CancelFunc) {
	if timeout := tm.config.BackgroundTasks.TaskTimeout; timeout > 0 {
		return context.WithTimeout(tm.ctx, timeout)
	}
	return context.WithCancel(tm.ctx)
}

// GetTaskResult retrieves the result of a task by process ID
func (tm *TaskManagerImpl) GetTaskResult(ctx context.Context, processID string) (*TaskResult, error) {
	return tm.store.Get(ctx, processID)
}

// GetTaskStatus retrieves the status of a task by process ID
func (tm *TaskManagerImpl) GetTaskStatus(ctx context.Context, processID string) (TaskStatus, error) {
	result, err := tm.store.Get(ctx, processID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// ListTasks lists all known tasks, newest first
func (tm *TaskManagerImpl) ListTasks(ctx context.Context) ([]*TaskResult, error) {
	return tm.store.List(ctx)
}

// IsHealthy checks if the task manager is healthy
func (tm *TaskManagerImpl) IsHealthy() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running && tm.ctx.Err() == nil
}

// worker processes tasks from the task channel
func (tm *TaskManagerImpl) worker(workerID int) {
	defer tm.wg.Done()

	for {
		select {
		case <-tm.ctx.Done():
			tm.drain(workerID)
			return
		case task, ok := <-tm.taskChan:
			if !ok {
				return
			}
			tm.processTask(workerID, task)
		}
	}
}

// drain fails whatever is still queued once the manager is stopping
func (tm *TaskManagerImpl) drain(workerID int) {
	for task := range tm.taskChan {
		tm.processTask(workerID, task)
	}
}

// processTask runs a single task and records its outcome
func (tm *TaskManagerImpl) processTask(workerID int, task *TaskExecution) {
	defer task.Cancel()
	startTime := time.Now()

	tm.appLogger.Debug("Processing task", map[string]interface{}{
		"worker_id":  workerID,
		"process_id": task.ProcessID,
		"task_type":  task.Type,
	})

	if err := tm.updateTaskStatus(task.ProcessID, TaskStatusProcessing); err != nil {
		tm.appLogger.Error("Failed to update task status to processing", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}

	tm.logger.LogTaskStart(task.ProcessID, task.Type)

	var (
		data interface{}
		err  error
	)
	if ctxErr := task.Context.Err(); ctxErr != nil {
		err = fmt.Errorf("task cancelled before start: %w", ctxErr)
	} else {
		data, err = tm.runSafely(task)
	}
	processingTime := time.Since(startTime)
	completedAt := time.Now()

	result, getErr := tm.store.Get(context.Background(), task.ProcessID)
	if getErr != nil {
		// the record expired or was removed; keep a fresh one so the outcome is visible
		result = &TaskResult{ProcessID: task.ProcessID, Type: task.Type, CreatedAt: startTime}
	}
	result.ProcessingTime = &processingTime
	result.CompletedAt = &completedAt

	if err != nil {
		result.Status = TaskStatusFailure
		result.Error = err.Error()
		tm.logger.LogTaskError(task.ProcessID, task.Type, err)
	} else {
		result.Status = TaskStatusSuccess
		result.Data = data
		tm.logger.LogTaskSuccess(task.ProcessID, task.Type, processingTime)
	}

	if getErr != nil {
		err = tm.store.Store(context.Background(), result)
	} else {
		err = tm.store.Update(context.Background(), result)
	}
	if err != nil {
		tm.appLogger.Error("Failed to store task result", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}

	if err := tm.logger.LogTaskCompletion(result); err != nil {
		tm.appLogger.Error("Failed to log task completion", map[string]interface{}{
			"process_id": task.ProcessID,
			"error":      err.Error(),
		})
	}
}

// runSafely turns a panic in an operation into a task failure
func (tm *TaskManagerImpl) runSafely(task *TaskExecution) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.ExecuteFunc(task.Context)
}

// updateTaskStatus updates the status of a task
func (tm *TaskManagerImpl) updateTaskStatus(processID string, status TaskStatus) error {
	result, err := tm.store.Get(context.Background(), processID)
	if err != nil {
		return err
	}

	result.Status = status
	return tm.store.Update(context.Background(), result)
}

// cleanupRoutine periodically drops old finished results
func (tm *TaskManagerImpl) cleanupRoutine() {
	defer tm.wg.Done()

	interval := tm.config.BackgroundTasks.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	maxAge := tm.config.BackgroundTasks.MaxTaskAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tm.ctx.Done():
			return
		case <-ticker.C:
			if err := tm.store.Cleanup(context.Background(), maxAge); err != nil {
				tm.appLogger.Error("Failed to cleanup old task results", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
