package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/dino-relay/app/database"
	"github.com/lysyi3m/dino-relay/app/feed"
	"github.com/lysyi3m/dino-relay/app/metrics"
	"github.com/lysyi3m/dino-relay/app/pipeline"
)

const (
	DefaultSourceDelay = time.Second
	// A source whose next fetch is at most this far away counts as due, so a
	// refresh interval equal to the cycle interval never skips a cycle.
	dueSlack = time.Minute
)

type Processor interface {
	Process(ctx context.Context, item feed.NewsItem, source *feed.Config) (pipeline.Outcome, error)
}

// Deps are the collaborators shared by the cycle and its per-source tasks.
type Deps struct {
	ConfigCache *feed.ConfigCache
	SourceRepo  database.SourceRepository
	Fetcher     *feed.Fetcher
	Parser      *feed.Parser
	Filterer    *feed.Filterer
	Extractor   *feed.ContentExtractor
	Processor   Processor
	Metrics     *metrics.Metrics
	SourceDelay time.Duration
}

// CycleTask visits every enabled, due source once, in name order.
type CycleTask struct {
	Task
	deps  *Deps
	now   func() time.Time
	wait  func(ctx context.Context, d time.Duration) error
	Stats Stats
}

func NewCycleTask(deps *Deps) *CycleTask {
	task := &CycleTask{
		Task: NewTask(TaskTypeRunCycle, ""),
		deps: deps,
		now:  time.Now,
		wait: waitContext,
	}
	task.MaxRetries = 0
	return task
}

func (t *CycleTask) Execute(ctx context.Context) error {
	start := t.now()
	defer func() {
		t.deps.Metrics.ObserveCycle(t.now().Sub(start))
	}()

	sources := t.deps.ConfigCache.GetEnabledConfigsSorted()
	if len(sources) == 0 {
		slog.Warn("No enabled sources configured")
		return nil
	}

	visited, failed := 0, 0
	for _, source := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !t.isDue(source) {
			continue
		}

		if visited > 0 {
			if err := t.wait(ctx, t.deps.SourceDelay); err != nil {
				return err
			}
		}
		visited++

		task := NewFetchSourceTask(source, t.deps)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			failed++
			slog.Warn("Source fetch failed", "source", source.Name, "error", err)
		}
		t.Stats.add(task.Stats)
	}

	slog.Info("Task completed",
		"type", "RunCycle",
		"id", t.ID,
		"duration", t.Duration(),
		"sources", visited,
		"failed_sources", failed,
		"items", t.Stats.Total,
		"delivered", t.Stats.Delivered,
		"rejected", t.Stats.Rejected)

	return nil
}

func (t *CycleTask) isDue(source *feed.Config) bool {
	if t.deps.SourceRepo == nil {
		return true
	}

	state, err := t.deps.SourceRepo.GetSource(source.Name)
	if err != nil {
		slog.Warn("Failed to read source state, fetching anyway", "source", source.Name, "error", err)
		return true
	}
	if state == nil || state.NextFetchAt == nil {
		return true
	}

	if state.NextFetchAt.After(t.now().UTC().Add(dueSlack)) {
		slog.Debug("Source not due for refresh yet", "source", source.Name, "next_fetch_at", state.NextFetchAt)
		return false
	}
	return true
}

func waitContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
