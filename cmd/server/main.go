package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lysyi3m/dino-relay/app/api"
	"github.com/lysyi3m/dino-relay/app/budget"
	"github.com/lysyi3m/dino-relay/app/cfg"
	"github.com/lysyi3m/dino-relay/app/classify"
	"github.com/lysyi3m/dino-relay/app/database"
	"github.com/lysyi3m/dino-relay/app/dedup"
	"github.com/lysyi3m/dino-relay/app/feed"
	"github.com/lysyi3m/dino-relay/app/llm"
	"github.com/lysyi3m/dino-relay/app/metrics"
	"github.com/lysyi3m/dino-relay/app/notify"
	"github.com/lysyi3m/dino-relay/app/pipeline"
	"github.com/lysyi3m/dino-relay/app/tasks"
	"github.com/lysyi3m/dino-relay/app/translate"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Dino Relay stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Dino Relay", "version", appCfg.Version)

	if err := os.MkdirAll(appCfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := database.Open(filepath.Join(appCfg.StateDir, "history.db"))
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	sourceRepo := database.NewSourceRepository(db)
	classRepo := database.NewClassificationRepository(db)
	deliveryRepo := database.NewDeliveryRepository(db)

	backend, dedupHealth, err := newDedupBackend(appCfg, db)
	if err != nil {
		return err
	}
	sent := dedup.New(backend)
	defer func() {
		if err := sent.Close(); err != nil {
			slog.Error("Failed to close sent items", "error", err)
		}
	}()

	if appCfg.ResetSent {
		return sent.Reset()
	}

	m := metrics.New()

	policy, err := classify.LoadPolicy(appCfg.PolicyPath)
	if err != nil {
		return err
	}

	glossary, err := translate.LoadGlossary(appCfg.GlossaryPath)
	if err != nil {
		return err
	}

	judgeCounter := budget.NewCounter("judge", filepath.Join(appCfg.StateDir, "usage_judge.json"),
		appCfg.JudgeDailyLimit, appCfg.JudgeMonthlyBudget)
	translateCounter := budget.NewCounter("translate", filepath.Join(appCfg.StateDir, "usage_translate.json"),
		appCfg.TranslateDailyLimit, appCfg.TranslateMonthlyBudget)

	breakers := map[string]api.BreakerInterface{}

	var judge classify.Judge
	var translateFn translate.TranslateFunc

	if appCfg.LLMAPIKey == "" {
		slog.Warn("No LLM API key configured, remote judge and translation disabled", "provider", appCfg.LLMProvider)
	} else {
		judgeClient, err := newGuardedClient(appCfg, "judge", appCfg.JudgeModel)
		if err != nil {
			return err
		}
		judge = classify.NewLLMJudge(judgeClient, judgeCounter, "")
		breakers["judge"] = judgeClient

		translateClient, err := newGuardedClient(appCfg, "translate", appCfg.TranslateModel)
		if err != nil {
			return err
		}
		translateFn = translate.NewLLMTranslator(translateClient, glossary, "", 0).Translate
		breakers["translate"] = translateClient
	}

	var model classify.Model
	if appCfg.ModelURL != "" {
		model = classify.NewModelClient(appCfg.ModelURL, 0)
		slog.Info("Local classification model enabled", "url", appCfg.ModelURL)
	}

	orchestrator := classify.NewOrchestrator(policy, model, judge)

	cache := translate.NewCache(translate.CacheConfig{
		Path:    filepath.Join(appCfg.StateDir, "translation_cache.json"),
		Observe: m.Translated,
	}, translateCounter, glossary)
	defer func() {
		if err := cache.Close(); err != nil {
			slog.Error("Failed to flush translation cache", "error", err)
		}
	}()

	sender, err := notify.NewTelegramSender(appCfg.TelegramBotToken, appCfg.TelegramChannelID,
		appCfg.TelegramAPIEndpoint, appCfg.TelegramTimeout, notify.NewFormatter(nil))
	if err != nil {
		return err
	}

	relay := pipeline.New(sent, orchestrator, cache, translateFn, sender, classRepo, deliveryRepo, m,
		pipeline.Config{DeliveryDelay: appCfg.DeliveryDelay})

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.SourcesDir)

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent)
	deps := &tasks.Deps{
		ConfigCache: configCache,
		SourceRepo:  sourceRepo,
		Fetcher:     fetcher,
		Parser:      feed.NewParser(),
		Filterer:    feed.NewFilterer(),
		Extractor:   feed.NewContentExtractor(fetcher, 15*time.Second),
		Processor:   relay,
		Metrics:     m,
		SourceDelay: appCfg.SourceDelay,
	}

	scheduler := tasks.NewScheduler(deps, appCfg.SchedulerInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appCfg.Once {
		slog.Info("Running a single cycle")
		if err := scheduler.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	handler := api.NewHandler(api.HandlerDeps{
		ConfigCache:  configCache,
		SourceRepo:   sourceRepo,
		ClassRepo:    classRepo,
		DeliveryRepo: deliveryRepo,
		Generator: feed.NewGenerator(feed.GeneratorConfig{
			Link:    appCfg.BaseUrl,
			SelfURL: selfURL(appCfg.BaseUrl),
			Version: appCfg.Version,
		}),
		Classifier:  orchestrator,
		Sent:        sent,
		DedupHealth: dedupHealth,
		Counters:    []*budget.Counter{judgeCounter, translateCounter},
		Breakers:    breakers,
		Metrics:     m,
	})

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	scheduler.Start()
	slog.Info("Dino Relay started", "interval", appCfg.SchedulerInterval.String(), "sources", configCache.GetConfigCount())

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-serverErrChan:
		slog.Error("Server error", "error", runErr)
	}

	slog.Info("Shutting down gracefully, the current item will finish")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Scheduler stopped")

	return runErr
}

func newDedupBackend(appCfg *cfg.Cfg, db *database.DB) (dedup.Backend, api.HealthReporter, error) {
	switch appCfg.DedupBackend {
	case cfg.DedupSQLite:
		return dedup.NewSQLiteBackend(database.NewSentItemRepository(db)), nil, nil
	case cfg.DedupRedis:
		backend, err := dedup.NewRedisBackend(dedup.RedisConfig{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
			Key:      appCfg.RedisKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return backend, backend, nil
	default:
		return dedup.NewFileBackend(filepath.Join(appCfg.StateDir, "sent_items.json")), nil, nil
	}
}

func newGuardedClient(appCfg *cfg.Cfg, name, model string) (*llm.Guarded, error) {
	client, err := llm.New(llm.Config{
		Provider: appCfg.LLMProvider,
		APIKey:   appCfg.LLMAPIKey,
		Model:    model,
		BaseURL:  appCfg.LLMBaseURL,
		Timeout:  appCfg.LLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}

	return llm.NewGuarded(client, llm.GuardConfig{
		Name:              name,
		RequestsPerMinute: appCfg.LLMRequestsPerMinute,
		Timeout:           appCfg.LLMTimeout,
	}), nil
}

func selfURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	return baseURL + "/feed"
}
