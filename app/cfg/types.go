package cfg

import "time"

type Cfg struct {
	// Telegram delivery
	TelegramBotToken    string
	TelegramChannelID   string
	TelegramAPIEndpoint string
	TelegramTimeout     time.Duration

	// Sources and persisted state
	SourcesDir   string
	StateDir     string
	PolicyPath   string
	GlossaryPath string
	DedupBackend string

	// Redis dedup backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// Remote models
	LLMProvider          string
	LLMAPIKey            string
	LLMBaseURL           string
	JudgeModel           string
	TranslateModel       string
	LLMTimeout           time.Duration
	LLMRequestsPerMinute int
	ModelURL             string

	// Daily and monthly spend caps, 0 means unlimited
	JudgeDailyLimit        int
	JudgeMonthlyBudget     float64
	TranslateDailyLimit    int
	TranslateMonthlyBudget float64

	// Application configuration
	Port              string
	BaseUrl           string
	APIAccessKey      string
	SchedulerInterval time.Duration
	SourceDelay       time.Duration
	DeliveryDelay     time.Duration
	Once              bool
	ResetSent         bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
