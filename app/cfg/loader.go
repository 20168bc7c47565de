package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	DedupFile   = "file"
	DedupSQLite = "sqlite"
	DedupRedis  = "redis"
)

type rawCfg struct {
	// Telegram delivery
	TelegramBotToken    string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token" required:"true"`
	TelegramChannelID   string `long:"telegram-channel-id" env:"TELEGRAM_CHANNEL_ID" description:"Target channel (@name or numeric chat ID)" required:"true"`
	TelegramAPIEndpoint string `long:"telegram-api-endpoint" env:"TELEGRAM_API_ENDPOINT" description:"Bot API endpoint format (defaults to api.telegram.org)"`
	TelegramTimeout     int    `long:"telegram-timeout" env:"TELEGRAM_TIMEOUT" default:"30" description:"Telegram request timeout in seconds"`

	// Sources and persisted state
	SourcesDir   string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	StateDir     string `long:"state-dir" env:"STATE_DIR" default:"./state" description:"Directory for sent items, translation cache, usage counters and history"`
	PolicyPath   string `long:"policy" env:"POLICY_PATH" description:"YAML file overriding the classification policy"`
	GlossaryPath string `long:"glossary" env:"GLOSSARY_PATH" description:"YAML file replacing the translation glossary"`
	DedupBackend string `long:"dedup-backend" env:"DEDUP_BACKEND" default:"file" choice:"file" choice:"sqlite" choice:"redis" description:"Where delivered item IDs are kept"`

	// Redis dedup backend
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	RedisKey      string `long:"redis-key" env:"REDIS_KEY" default:"dino-relay:sent" description:"Redis set holding delivered item IDs"`

	// Remote models
	LLMProvider          string `long:"llm-provider" env:"LLM_PROVIDER" default:"claude" choice:"claude" choice:"openai" description:"Remote model provider for judging and translation"`
	LLMAPIKey            string `long:"llm-api-key" env:"LLM_API_KEY" description:"Remote model API key (falls back to ANTHROPIC_API_KEY, CLAUDE_API_KEY or OPENAI_API_KEY)"`
	LLMBaseURL           string `long:"llm-base-url" env:"LLM_BASE_URL" description:"Override the provider API base URL"`
	JudgeModel           string `long:"judge-model" env:"JUDGE_MODEL" description:"Model used by the relevance judge (defaults per provider)"`
	TranslateModel       string `long:"translate-model" env:"TRANSLATE_MODEL" description:"Model used for translation (defaults per provider)"`
	LLMTimeout           int    `long:"llm-timeout" env:"LLM_TIMEOUT" default:"30" description:"Remote model call timeout in seconds"`
	LLMRequestsPerMinute int    `long:"llm-rpm" env:"LLM_REQUESTS_PER_MINUTE" default:"50" description:"Remote model calls per minute, 0 disables pacing"`
	ModelURL             string `long:"model-url" env:"MODEL_URL" description:"Local text-classification model server (optional)"`

	// Spend caps
	JudgeDailyLimit        int     `long:"judge-daily-limit" env:"JUDGE_DAILY_LIMIT" default:"500" description:"Remote judge calls per day, 0 for unlimited"`
	JudgeMonthlyBudget     float64 `long:"judge-monthly-budget" env:"JUDGE_MONTHLY_BUDGET" default:"0" description:"Remote judge spend per month in USD, 0 for unlimited"`
	TranslateDailyLimit    int     `long:"translate-daily-limit" env:"TRANSLATE_DAILY_LIMIT" default:"1000" description:"Translation calls per day, 0 for unlimited"`
	TranslateMonthlyBudget float64 `long:"translate-monthly-budget" env:"TRANSLATE_MONTHLY_BUDGET" default:"0" description:"Translation spend per month in USD, 0 for unlimited"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://relay.example.com)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Seconds between polling cycles"`
	SourceDelay       int    `long:"source-delay" env:"SOURCE_DELAY" default:"1" description:"Seconds to pause between sources"`
	DeliveryDelay     int    `long:"delivery-delay" env:"DELIVERY_DELAY" default:"5" description:"Seconds to pause after each delivered message"`
	Once              bool   `long:"once" env:"RUN_ONCE" description:"Run a single cycle and exit"`
	ResetSent         bool   `long:"reset-sent" description:"Forget every delivered item and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Dino Relay/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (when present), flags and environment, validates the
// result and makes it available through Get. It returns nil, nil when help
// was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TelegramBotToken:       strings.TrimSpace(raw.TelegramBotToken),
		TelegramChannelID:      strings.TrimSpace(raw.TelegramChannelID),
		TelegramAPIEndpoint:    raw.TelegramAPIEndpoint,
		TelegramTimeout:        time.Duration(raw.TelegramTimeout) * time.Second,
		SourcesDir:             raw.SourcesDir,
		StateDir:               raw.StateDir,
		PolicyPath:             raw.PolicyPath,
		GlossaryPath:           raw.GlossaryPath,
		DedupBackend:           raw.DedupBackend,
		RedisAddr:              raw.RedisAddr,
		RedisPassword:          raw.RedisPassword,
		RedisDB:                raw.RedisDB,
		RedisKey:               raw.RedisKey,
		LLMProvider:            raw.LLMProvider,
		LLMAPIKey:              cmp.Or(raw.LLMAPIKey, providerKey(raw.LLMProvider)),
		LLMBaseURL:             raw.LLMBaseURL,
		JudgeModel:             cmp.Or(raw.JudgeModel, defaultJudgeModel(raw.LLMProvider)),
		TranslateModel:         raw.TranslateModel,
		LLMTimeout:             time.Duration(raw.LLMTimeout) * time.Second,
		LLMRequestsPerMinute:   raw.LLMRequestsPerMinute,
		ModelURL:               raw.ModelURL,
		JudgeDailyLimit:        raw.JudgeDailyLimit,
		JudgeMonthlyBudget:     raw.JudgeMonthlyBudget,
		TranslateDailyLimit:    raw.TranslateDailyLimit,
		TranslateMonthlyBudget: raw.TranslateMonthlyBudget,
		Port:                   raw.Port,
		BaseUrl:                strings.TrimRight(raw.BaseUrl, "/"),
		APIAccessKey:           raw.APIAccessKey,
		SchedulerInterval:      time.Duration(raw.SchedulerInterval) * time.Second,
		SourceDelay:            time.Duration(raw.SourceDelay) * time.Second,
		DeliveryDelay:          time.Duration(raw.DeliveryDelay) * time.Second,
		Once:                   raw.Once,
		ResetSent:              raw.ResetSent,
		UserAgent:              raw.UserAgent,
		Timezone:               raw.Timezone,
		Debug:                  raw.Debug,
		Version:                GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// providerKey reads the provider's conventional key variable.
func providerKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return cmp.Or(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("CLAUDE_API_KEY"))
	}
}

// defaultJudgeModel picks a stronger model for judging than the provider's
// default, which is used for translation.
func defaultJudgeModel(provider string) string {
	if provider == "claude" {
		return "claude-sonnet-4-20250514"
	}
	return ""
}

func (c *Cfg) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChannelID == "" {
		return fmt.Errorf("TELEGRAM_CHANNEL_ID is required")
	}
	if c.TelegramTimeout <= 0 {
		return fmt.Errorf("telegram timeout must be positive, got %s", c.TelegramTimeout)
	}
	if c.SchedulerInterval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.SchedulerInterval)
	}
	if c.SourceDelay < 0 || c.DeliveryDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if c.JudgeDailyLimit < 0 || c.TranslateDailyLimit < 0 {
		return fmt.Errorf("daily limits cannot be negative")
	}
	if c.JudgeMonthlyBudget < 0 || c.TranslateMonthlyBudget < 0 {
		return fmt.Errorf("monthly budgets cannot be negative")
	}

	switch c.DedupBackend {
	case DedupFile, DedupSQLite:
	case DedupRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis dedup backend")
		}
	default:
		return fmt.Errorf("unknown dedup backend: %q (valid: file, sqlite, redis)", c.DedupBackend)
	}

	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
