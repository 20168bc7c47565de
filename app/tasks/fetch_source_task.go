package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/dino-relay/app/feed"
	"github.com/lysyi3m/dino-relay/app/pipeline"
)

// Stats counts item outcomes of one source or one cycle.
type Stats struct {
	Total      int
	Filtered   int
	Duplicates int
	Rejected   int
	Delivered  int
	Failed     int
}

func (s *Stats) add(o Stats) {
	s.Total += o.Total
	s.Filtered += o.Filtered
	s.Duplicates += o.Duplicates
	s.Rejected += o.Rejected
	s.Delivered += o.Delivered
	s.Failed += o.Failed
}

func (s *Stats) count(outcome pipeline.Outcome) {
	switch outcome {
	case pipeline.OutcomeFiltered:
		s.Filtered++
	case pipeline.OutcomeDuplicate:
		s.Duplicates++
	case pipeline.OutcomeRejected:
		s.Rejected++
	case pipeline.OutcomeDelivered:
		s.Delivered++
	case pipeline.OutcomeFailed:
		s.Failed++
	}
}

// FetchSourceTask fetches one source and runs its selected items through the pipeline.
type FetchSourceTask struct {
	Task
	SourceConfig *feed.Config
	deps         *Deps
	now          func() time.Time
	Stats        Stats
}

func NewFetchSourceTask(sourceConfig *feed.Config, deps *Deps) *FetchSourceTask {
	task := &FetchSourceTask{
		Task:         NewTask(TaskTypeFetchSource, sourceConfig.Name),
		SourceConfig: sourceConfig,
		deps:         deps,
		now:          time.Now,
	}
	task.MaxRetries = 0
	return task
}

func (t *FetchSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	settings := t.SourceConfig.Settings
	sourceName := t.SourceConfig.SourceName()
	nextFetch := t.now().UTC().Add(time.Duration(settings.RefreshInterval) * time.Second)

	data, err := t.deps.Fetcher.Fetch(ctx, t.SourceConfig.URL, time.Duration(settings.Timeout)*time.Second)
	if err != nil {
		return t.fail(sourceName, nextFetch, err)
	}

	metadata, items, err := t.deps.Parser.Run(data, sourceName)
	if err != nil {
		return t.fail(sourceName, nextFetch, err)
	}

	items = feed.Select(items, settings.MaxItems, time.Duration(settings.FreshnessHours)*time.Hour, t.now())
	items = t.deps.Filterer.Run(items, t.SourceConfig)

	if settings.EnrichSummary && t.deps.Extractor != nil {
		items = t.deps.Extractor.Enrich(ctx, items)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			slog.Info("Stop requested, leaving remaining items for the next cycle", "source", sourceName)
			break
		}

		t.Stats.Total++
		outcome, err := t.deps.Processor.Process(ctx, item, t.SourceConfig)
		if err != nil {
			slog.Warn("Item processing failed", "source", sourceName, "title", item.Title, "error", err)
		}
		t.Stats.count(outcome)
	}

	if t.deps.SourceRepo != nil {
		if err := t.deps.SourceRepo.UpdateFetchResult(t.SourceConfig.Name, metadata.Title, len(items), nil, nextFetch); err != nil {
			slog.Warn("Failed to update source fetch state", "source", t.SourceName, "error", err)
		}
	}

	slog.Info("Task completed",
		"type", "FetchSource",
		"source", t.SourceName,
		"duration", t.Duration(),
		"total", t.Stats.Total,
		"filtered", t.Stats.Filtered,
		"duplicates", t.Stats.Duplicates,
		"rejected", t.Stats.Rejected,
		"delivered", t.Stats.Delivered,
		"failed", t.Stats.Failed)

	return nil
}

func (t *FetchSourceTask) fail(sourceName string, nextFetch time.Time, err error) error {
	t.deps.Metrics.FeedFailed(sourceName)

	if t.deps.SourceRepo != nil {
		if dbErr := t.deps.SourceRepo.UpdateFetchResult(t.SourceConfig.Name, "", 0, err, nextFetch); dbErr != nil {
			slog.Warn("Failed to update source fetch state", "source", t.SourceName, "error", dbErr)
		}
	}

	return fmt.Errorf("failed to fetch source %s: %w", t.SourceName, err)
}
