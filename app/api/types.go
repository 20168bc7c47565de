package api

import (
	"context"

	"github.com/lysyi3m/dino-relay/app/budget"
	"github.com/lysyi3m/dino-relay/app/classify"
	"github.com/lysyi3m/dino-relay/app/database"
	"github.com/lysyi3m/dino-relay/app/dedup"
	"github.com/lysyi3m/dino-relay/app/feed"
	"github.com/lysyi3m/dino-relay/app/metrics"
)

type GeneratorInterface interface {
	Run(deliveries []database.Delivery) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type ClassifierInterface interface {
	Classify(ctx context.Context, title, summary string) classify.Result
	Score(title, summary string) classify.KeywordScore
	Prefilter(title, summary string) classify.Verdict
}

var _ ClassifierInterface = (*classify.Orchestrator)(nil)

// BreakerInterface reports the state of a guarded remote client.
type BreakerInterface interface {
	State() string
}

// HealthReporter is implemented by dedup backends that talk to a server.
type HealthReporter interface {
	Health() map[string]interface{}
}

// HandlerDeps are the collaborators exposed over HTTP. Nil optional fields
// are left out of the responses.
type HandlerDeps struct {
	ConfigCache  *feed.ConfigCache
	SourceRepo   database.SourceRepository
	ClassRepo    database.ClassificationRepository
	DeliveryRepo database.DeliveryRepository
	Generator    GeneratorInterface
	Classifier   ClassifierInterface
	Sent         dedup.Store
	DedupHealth  HealthReporter
	Counters     []*budget.Counter
	Breakers     map[string]BreakerInterface
	Metrics      *metrics.Metrics
	FeedItems    int
}

type Handler struct {
	deps HandlerDeps
}

type classifyRequest struct {
	Title   string `json:"title" binding:"required"`
	Summary string `json:"summary"`
}
