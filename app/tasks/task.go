package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeSyncSource  TaskType = "sync_source"
	TaskTypeFetchSource TaskType = "fetch_source"
	TaskTypeRunCycle    TaskType = "run_cycle"
)

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

// TaskInterface is a unit of work for the scheduler's worker.
type TaskInterface interface {
	Execute(ctx context.Context) error
	Info() *Task
}

// Task carries the bookkeeping shared by every task type.
type Task struct {
	ID         string
	Type       TaskType
	SourceName string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, sourceName string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		SourceName: sourceName,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) Info() *Task {
	return t
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// NextRetry counts an attempt and returns how long to wait before it:
// 1s, 2s, 4s... capped at 30s.
func (t *Task) NextRetry() time.Duration {
	t.RetryCount++
	delay := time.Duration(1<<uint(t.RetryCount-1)) * time.Second
	return min(delay, maxRetryDelay)
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// logAttrs are the attributes every task log line starts with.
func (t *Task) logAttrs() []any {
	attrs := []any{"type", string(t.Type), "id", t.ID}
	if t.SourceName != "" {
		attrs = append(attrs, "source", t.SourceName)
	}
	return attrs
}
