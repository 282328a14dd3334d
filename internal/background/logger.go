package background

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"lead-hunter/internal/logging"
	"lead-hunter/pkg/utils"
)

// TaskCompletionLogger handles structured logging for task lifecycle events.
// Completion records are also written as one JSON line to out, where container
// log collectors pick them up.
type TaskCompletionLogger struct {
	logger logging.Logger
	out    io.Writer
	mu     sync.Mutex
}

// NewTaskCompletionLogger creates a task logger writing completion lines to stdout
func NewTaskCompletionLogger(logger logging.Logger) *TaskCompletionLogger {
	return NewTaskCompletionLoggerWithWriter(logger, os.Stdout)
}

// NewTaskCompletionLoggerWithWriter creates a task logger writing completion lines to out
func NewTaskCompletionLoggerWithWriter(logger logging.Logger, out io.Writer) *TaskCompletionLogger {
	if out == nil {
		out = io.Discard
	}
	return &TaskCompletionLogger{
		logger: logger,
		out:    out,
	}
}

// TaskCompletionLog represents the structured log entry for task completion
type TaskCompletionLog struct {
	ProcessID      string                 `json:"processId"`
	Status         string                 `json:"status"`
	Data           interface{}            `json:"data,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Operation      string                 `json:"operation"`
	ProcessingTime string                 `json:"processing_time"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// CreateTaskCompletionLog creates a TaskCompletionLog from a TaskResult
func CreateTaskCompletionLog(result *TaskResult) *TaskCompletionLog {
	processingTime := "0s"
	if result.ProcessingTime != nil {
		processingTime = result.ProcessingTime.String()
	}

	return &TaskCompletionLog{
		ProcessID:      result.ProcessID,
		Status:         string(result.Status),
		Data:           result.Data,
		Error:          result.Error,
		Timestamp:      time.Now(),
		Operation:      string(result.Type),
		ProcessingTime: processingTime,
		Metadata:       result.Metadata,
	}
}

// LogTaskCompletion writes the completion record and mirrors it to the application logger
func (l *TaskCompletionLogger) LogTaskCompletion(result *TaskResult) error {
	jsonData, err := json.Marshal(CreateTaskCompletionLog(result))
	if err != nil {
		l.logger.Error("Failed to marshal task completion log", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("failed to marshal task completion log: %w", err)
	}

	l.mu.Lock()
	_, err = l.out.Write(append(jsonData, '\n'))
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write task completion log: %w", err)
	}

	l.logger.Info("Background task completed", map[string]interface{}{
		"process_id": result.ProcessID,
		"status":     result.Status,
		"operation":  result.Type,
	})
	return nil
}

// LogTaskStart logs when a task starts processing
func (l *TaskCompletionLogger) LogTaskStart(processID string, taskType TaskType) {
	l.logger.Info("Background task started", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     TaskStatusProcessing,
	})
}

// LogTaskAccepted logs when a task is accepted for processing
func (l *TaskCompletionLogger) LogTaskAccepted(processID string, taskType TaskType) {
	l.logger.Info("Background task accepted", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     TaskStatusAccepted,
	})
}

// LogTaskError logs task errors during processing
func (l *TaskCompletionLogger) LogTaskError(processID string, taskType TaskType, err error) {
	l.logger.Error("Background task failed", map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"status":     TaskStatusFailure,
		"error":      err.Error(),
	})
}

// LogTaskSuccess logs successful task completion
func (l *TaskCompletionLogger) LogTaskSuccess(processID string, taskType TaskType, processingTime time.Duration) {
	l.logger.Info("Background task completed successfully", map[string]interface{}{
		"process_id":      processID,
		"operation":       taskType,
		"status":          TaskStatusSuccess,
		"processing_time": utils.FormatDuration(processingTime),
	})
}

// LogTaskMetrics logs the counters of an operation summary
func (l *TaskCompletionLogger) LogTaskMetrics(processID string, taskType TaskType, metrics map[string]interface{}) {
	logFields := map[string]interface{}{
		"process_id": processID,
		"operation":  taskType,
		"type":       "metrics",
	}
	for key, value := range metrics {
		logFields[key] = value
	}

	l.logger.Info("Background task metrics", logFields)
}
