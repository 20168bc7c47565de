// Package pipeline carries one news item from the feed to the channel:
// dedup, classification, translation, delivery and commit.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/dino-relay/app/classify"
	"github.com/lysyi3m/dino-relay/app/database"
	"github.com/lysyi3m/dino-relay/app/dedup"
	"github.com/lysyi3m/dino-relay/app/feed"
	"github.com/lysyi3m/dino-relay/app/metrics"
	"github.com/lysyi3m/dino-relay/app/notify"
	"github.com/lysyi3m/dino-relay/app/translate"
)

type Outcome string

const (
	OutcomeFiltered  Outcome = "filtered"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

const (
	DefaultDeliveryDelay = 5 * time.Second
	DefaultItemTimeout   = 2 * time.Minute
)

type Classifier interface {
	Classify(ctx context.Context, title, summary string) classify.Result
}

type Translator interface {
	GetOrTranslate(ctx context.Context, text, kind string, fn translate.TranslateFunc) string
}

type Config struct {
	DeliveryDelay time.Duration
	ItemTimeout   time.Duration
}

type Pipeline struct {
	store           dedup.Store
	classifier      Classifier
	translator      Translator
	translateFn     translate.TranslateFunc
	sender          notify.Sender
	classifications database.ClassificationRepository
	deliveries      database.DeliveryRepository
	metrics         *metrics.Metrics
	cfg             Config
	sleep           func(ctx context.Context, d time.Duration)
}

// New wires a pipeline. translateFn, the repositories and m may be nil.
func New(store dedup.Store, classifier Classifier, translator Translator, translateFn translate.TranslateFunc,
	sender notify.Sender, classifications database.ClassificationRepository, deliveries database.DeliveryRepository,
	m *metrics.Metrics, cfg Config) *Pipeline {
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = DefaultItemTimeout
	}
	if cfg.DeliveryDelay < 0 {
		cfg.DeliveryDelay = 0
	}

	return &Pipeline{
		store:           store,
		classifier:      classifier,
		translator:      translator,
		translateFn:     translateFn,
		sender:          sender,
		classifications: classifications,
		deliveries:      deliveries,
		metrics:         m,
		cfg:             cfg,
		sleep:           sleepContext,
	}
}

// Process runs one item through the pipeline. Once started, the item is
// finished even if ctx is cancelled; only the post-delivery pause observes ctx.
func (p *Pipeline) Process(ctx context.Context, item feed.NewsItem, source *feed.Config) (Outcome, error) {
	if item.IsFiltered {
		slog.Debug("Item filtered by source rules", "source", item.Source, "title", item.Title, "reason", item.FilterReason)
		p.metrics.ItemSeen(item.Source, string(OutcomeFiltered))
		return OutcomeFiltered, nil
	}

	id, isNew := p.store.IsNewItem(item.Title, item.Link)
	if !isNew {
		p.metrics.ItemSeen(item.Source, string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.ItemTimeout)
	defer cancel()

	result := p.classifier.Classify(itemCtx, item.Title, item.Summary)
	p.recordClassification(id, item, result)

	if !result.Decision {
		slog.Debug("Item rejected", "source", item.Source, "title", item.Title, "method", result.Method, "confidence", result.Confidence)
		p.metrics.ItemSeen(item.Source, string(OutcomeRejected))
		return OutcomeRejected, nil
	}

	slog.Info("Item accepted", "source", item.Source, "title", item.Title, "method", result.Method, "confidence", result.Confidence)

	msg := p.buildMessage(itemCtx, item, source)

	if err := p.sender.Send(itemCtx, msg); err != nil {
		p.store.Release(id)
		p.recordDelivery(id, item, msg, err)
		p.metrics.Delivered(false)
		p.metrics.ItemSeen(item.Source, string(OutcomeFailed))
		return OutcomeFailed, fmt.Errorf("failed to deliver item: %w", err)
	}

	p.store.MarkDelivered(id)
	if err := p.store.Commit(); err != nil {
		slog.Error("Failed to persist delivered set", "error", err)
	}

	p.recordDelivery(id, item, msg, nil)
	p.metrics.Delivered(true)
	p.metrics.ItemSeen(item.Source, string(OutcomeDelivered))

	slog.Info("Item delivered", "source", item.Source, "title", item.Title)

	if p.cfg.DeliveryDelay > 0 {
		p.sleep(ctx, p.cfg.DeliveryDelay)
	}

	return OutcomeDelivered, nil
}

func (p *Pipeline) buildMessage(ctx context.Context, item feed.NewsItem, source *feed.Config) notify.Message {
	msg := notify.Message{
		SourceName:      item.Source,
		TitleOriginal:   item.Title,
		SummaryOriginal: item.Summary,
		Link:            item.Link,
	}

	if source != nil {
		msg.LocalizedSource = source.LocalizedName
		msg.Emoji = source.Emoji
		msg.Hashtag = source.Hashtag
	}

	if p.translator != nil {
		msg.TitleTranslated = p.translator.GetOrTranslate(ctx, item.Title, "title", p.translateFn)
		if item.Summary != "" {
			msg.SummaryTranslated = p.translator.GetOrTranslate(ctx, item.Summary, "summary", p.translateFn)
		}
	}

	return msg
}

func (p *Pipeline) recordClassification(id string, item feed.NewsItem, result classify.Result) {
	p.metrics.Classified(string(result.Method), result.Decision, result.JudgeConsulted)

	if p.classifications == nil {
		return
	}

	err := p.classifications.RecordClassification(database.Classification{
		ItemID:         id,
		Source:         item.Source,
		Title:          item.Title,
		Link:           item.Link,
		Decision:       result.Decision,
		Confidence:     result.Confidence,
		Method:         string(result.Method),
		KeywordScore:   result.KeywordScore,
		JudgeConsulted: result.JudgeConsulted,
	})
	if err != nil {
		slog.Warn("Failed to record classification", "source", item.Source, "error", err)
	}
}

func (p *Pipeline) recordDelivery(id string, item feed.NewsItem, msg notify.Message, sendErr error) {
	if p.deliveries == nil {
		return
	}

	delivery := database.Delivery{
		ItemID:            id,
		Source:            item.Source,
		TitleOriginal:     item.Title,
		TitleTranslated:   msg.TitleTranslated,
		SummaryOriginal:   item.Summary,
		SummaryTranslated: msg.SummaryTranslated,
		Link:              item.Link,
		PublishedAt:       item.Published,
		Status:            database.DeliveryStatusSent,
	}
	if sendErr != nil {
		delivery.Status = database.DeliveryStatusFailed
		delivery.Error = sendErr.Error()
	}

	if err := p.deliveries.RecordDelivery(delivery); err != nil {
		slog.Warn("Failed to record delivery", "source", item.Source, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
