package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RunOnce(ctx context.Context) error
}

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs tasks on a single worker so items are processed one at a
// time. A cycle is enqueued at start and then on every tick.
type Scheduler struct {
	deps        *Deps
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	cycleQueued atomic.Bool
}

func NewScheduler(deps *Deps, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		deps:      deps,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		taskQueue: make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueCycle()
			}
		}
	}()
}

// Stop cancels the scheduler and waits for the in-flight task to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// RunOnce syncs sources and runs a single cycle on the caller's goroutine.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	for _, task := range s.syncTasks() {
		task.Info().Start()
		if err := task.Execute(ctx); err != nil {
			slog.Warn("Failed to sync source", "source", task.Info().SourceName, "error", err)
		}
	}

	cycle := NewCycleTask(s.deps)
	cycle.Start()
	return cycle.Execute(ctx)
}

func (s *Scheduler) syncTasks() []TaskInterface {
	if s.deps.SourceRepo == nil {
		return nil
	}

	configs := s.deps.ConfigCache.GetConfigs()
	tasks := make([]TaskInterface, 0, len(configs))
	for _, sourceConfig := range configs {
		tasks = append(tasks, NewSyncSourceTask(sourceConfig, s.deps.SourceRepo))
	}
	return tasks
}

func (s *Scheduler) enqueueStartupTasks() {
	for _, task := range s.syncTasks() {
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue SyncSourceTask", "source", task.Info().SourceName, "error", err)
		}
	}

	s.enqueueCycle()
}

func (s *Scheduler) enqueueCycle() {
	if !s.cycleQueued.CompareAndSwap(false, true) {
		slog.Debug("Previous cycle still pending, skipping tick")
		return
	}

	if err := s.EnqueueTask(NewCycleTask(s.deps)); err != nil {
		s.cycleQueued.Store(false)
		slog.Warn("Failed to enqueue CycleTask", "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	info := task.Info()
	if info.Type == TaskTypeRunCycle {
		defer s.cycleQueued.Store(false)
	}

	info.Start()

	err := task.Execute(s.ctx)
	if err == nil {
		return
	}

	if s.ctx.Err() != nil {
		slog.Info("Task interrupted by shutdown", info.logAttrs()...)
		return
	}

	slog.Error("Worker task execution failed", append(info.logAttrs(), "retry_count", info.RetryCount, "error", err)...)

	if !info.CanRetry() {
		if info.MaxRetries > 0 {
			slog.Error("Task failed after maximum retries", append(info.logAttrs(), "max_retries", info.MaxRetries, "last_error", err)...)
		}
		return
	}

	retryDelay := info.NextRetry()
	slog.Warn("Task retry scheduled", append(info.logAttrs(), "retry_count", info.RetryCount, "delay", retryDelay.String())...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := waitContext(s.ctx, retryDelay); err != nil {
			slog.Debug("Scheduler stopped, skipping task retry", info.logAttrs()...)
			return
		}
		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", append(info.logAttrs(), "error", retryErr)...)
		}
	}()
}
