package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/dino-relay/app/database"
	"github.com/lysyi3m/dino-relay/app/feed"
)

// SyncSourceTask registers a configured source in the history store.
type SyncSourceTask struct {
	Task
	SourceConfig *feed.Config
	sourceRepo   database.SourceRepository
}

func NewSyncSourceTask(sourceConfig *feed.Config, sourceRepo database.SourceRepository) *SyncSourceTask {
	return &SyncSourceTask{
		Task:         NewTask(TaskTypeSyncSource, sourceConfig.Name),
		SourceConfig: sourceConfig,
		sourceRepo:   sourceRepo,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.sourceRepo.UpsertSource(t.SourceConfig.Name, t.SourceConfig.URL); err != nil {
		return fmt.Errorf("failed to sync source config to database: %w", err)
	}

	slog.Debug("Task completed",
		"type", "SyncSource",
		"source", t.SourceName,
		"duration", t.Duration())

	return nil
}
