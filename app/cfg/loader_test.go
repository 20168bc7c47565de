package cfg

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHANNEL_ID", "LLM_API_KEY", "ANTHROPIC_API_KEY",
		"CLAUDE_API_KEY", "OPENAI_API_KEY", "JUDGE_MODEL", "TRANSLATE_MODEL", "LLM_PROVIDER", "DEDUP_BACKEND", "SCHEDULER_INTERVAL", "RUN_ONCE",
		"TELEGRAM_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := parse([]string{"--telegram-bot-token", "123:abc", "--telegram-channel-id", "@dinonews"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.SourcesDir != "./sources" || cfg.StateDir != "./state" {
		t.Errorf("Expected default directories, got %s and %s", cfg.SourcesDir, cfg.StateDir)
	}
	if cfg.SchedulerInterval != time.Hour {
		t.Errorf("Expected hourly cycles, got %s", cfg.SchedulerInterval)
	}
	if cfg.DeliveryDelay != 5*time.Second || cfg.SourceDelay != time.Second {
		t.Errorf("Expected 5s delivery and 1s source delays, got %s and %s", cfg.DeliveryDelay, cfg.SourceDelay)
	}
	if cfg.DedupBackend != DedupFile {
		t.Errorf("Expected file dedup backend, got %s", cfg.DedupBackend)
	}
	if cfg.TelegramTimeout != 30*time.Second {
		t.Errorf("Expected 30s Telegram timeout, got %s", cfg.TelegramTimeout)
	}
	if cfg.LLMProvider != "claude" || cfg.LLMTimeout != 30*time.Second {
		t.Errorf("Expected claude with 30s timeout, got %s and %s", cfg.LLMProvider, cfg.LLMTimeout)
	}
	if cfg.JudgeModel != "claude-sonnet-4-20250514" || cfg.TranslateModel != "" {
		t.Errorf("Expected provider model defaults, got %q and %q", cfg.JudgeModel, cfg.TranslateModel)
	}
	if cfg.LLMAPIKey != "" {
		t.Errorf("Expected no API key, got %q", cfg.LLMAPIKey)
	}
	if cfg.Once || cfg.ResetSent || cfg.Debug {
		t.Error("Expected flags to default to false")
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestParse_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", " 123:abc ")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-1001234")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("DEDUP_BACKEND", "sqlite")
	t.Setenv("SCHEDULER_INTERVAL", "600")
	t.Setenv("RUN_ONCE", "true")

	cfg, err := parse([]string{"--base-url", "https://relay.example.com/"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.TelegramBotToken != "123:abc" || cfg.TelegramChannelID != "-1001234" {
		t.Errorf("Expected trimmed Telegram settings, got %q and %q", cfg.TelegramBotToken, cfg.TelegramChannelID)
	}
	if cfg.LLMAPIKey != "sk-ant" {
		t.Errorf("Expected provider key fallback, got %q", cfg.LLMAPIKey)
	}
	if cfg.DedupBackend != DedupSQLite || cfg.SchedulerInterval != 10*time.Minute || !cfg.Once {
		t.Errorf("Expected environment overrides, got %+v", cfg)
	}
	if cfg.BaseUrl != "https://relay.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", cfg.BaseUrl)
	}
}

func TestParse_OpenAIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := parse([]string{"--telegram-bot-token", "t", "--telegram-channel-id", "c", "--llm-provider", "openai"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.LLMAPIKey != "sk-openai" {
		t.Errorf("Expected OpenAI key, got %q", cfg.LLMAPIKey)
	}
	if cfg.JudgeModel != "" {
		t.Errorf("Expected OpenAI client default model, got %q", cfg.JudgeModel)
	}
}

func TestParse_MissingTelegramSettings(t *testing.T) {
	clearEnv(t)

	_, err := parse([]string{"--telegram-channel-id", "@dinonews"})
	if err == nil {
		t.Fatal("Expected error for missing bot token")
	}
	if !strings.Contains(err.Error(), "telegram-bot-token") {
		t.Errorf("Expected error naming the missing setting, got %v", err)
	}
}

func TestParse_InvalidChoice(t *testing.T) {
	clearEnv(t)

	_, err := parse([]string{"--telegram-bot-token", "t", "--telegram-channel-id", "c", "--dedup-backend", "memcached"})
	if err == nil {
		t.Error("Expected error for unknown dedup backend")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Cfg {
		return &Cfg{
			TelegramBotToken:  "t",
			TelegramChannelID: "c",
			TelegramTimeout:   30 * time.Second,
			DedupBackend:      DedupFile,
			SchedulerInterval: time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Cfg)
		wantErr string
	}{
		{"valid", func(c *Cfg) {}, ""},
		{"blank token", func(c *Cfg) { c.TelegramBotToken = "" }, "TELEGRAM_BOT_TOKEN"},
		{"blank channel", func(c *Cfg) { c.TelegramChannelID = "" }, "TELEGRAM_CHANNEL_ID"},
		{"zero telegram timeout", func(c *Cfg) { c.TelegramTimeout = 0 }, "telegram timeout"},
		{"zero interval", func(c *Cfg) { c.SchedulerInterval = 0 }, "interval"},
		{"negative delay", func(c *Cfg) { c.DeliveryDelay = -time.Second }, "delays"},
		{"negative limit", func(c *Cfg) { c.JudgeDailyLimit = -1 }, "daily limits"},
		{"negative budget", func(c *Cfg) { c.TranslateMonthlyBudget = -1 }, "monthly budgets"},
		{"redis without addr", func(c *Cfg) { c.DedupBackend = DedupRedis }, "REDIS_ADDR"},
		{"redis with addr", func(c *Cfg) { c.DedupBackend = DedupRedis; c.RedisAddr = "localhost:6379" }, ""},
		{"unknown backend", func(c *Cfg) { c.DedupBackend = "memory" }, "unknown dedup backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGet_AfterLoad(t *testing.T) {
	globalCfg = &Cfg{Port: "8080"}
	t.Cleanup(func() { globalCfg = nil })

	if Get().Port != "8080" {
		t.Error("Expected loaded configuration from Get")
	}
}
