package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ProviderMock      = "mock"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Port     int
	LogLevel string

	Provider        string
	GeminiAPIKey    string
	AnthropicAPIKey string
	ChatModel       string
	EvalModel       string
	EvalSchema      string
	ScoringTimeout  time.Duration
	MaxTurns        int
	MaxSessions     int

	TelemetryURL     string
	TelemetryTimeout time.Duration

	DatabaseURL string
	NatsURL     string
	NatsToken   string

	SlackBotToken string
	SlackChannel  string
	// IncidentThreshold is nil when unset so the schema's default applies.
	IncidentThreshold *float64

	APIToken string
}

// DefaultMaxSessions caps live in-memory sessions; the least recently used
// one is dropped beyond it.
const DefaultMaxSessions = 10000

func Load() Config {
	cfg := Config{
		Port:     envInt("HUMANEBENCH_PORT", 8760),
		LogLevel: envStr("LOG_LEVEL", "info"),

		Provider:        envStr("PROVIDER", ProviderMock),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		EvalSchema:      envStr("EVAL_SCHEMA", "principles"),
		ScoringTimeout:  envDuration("SCORING_TIMEOUT", 45*time.Second),
		MaxTurns:        envInt("MAX_TURNS_PER_SESSION", 0),
		MaxSessions:     envInt("MAX_SESSIONS", DefaultMaxSessions),

		TelemetryURL:     envStr("TELEMETRY_URL", ""),
		TelemetryTimeout: envDuration("TELEMETRY_TIMEOUT", 5*time.Second),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),

		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:      envStr("SLACK_INCIDENTS_CHANNEL", ""),
		IncidentThreshold: envFloatPtr("INCIDENT_THRESHOLD"),

		APIToken: envStr("API_TOKEN", ""),
	}
	chat, eval := defaultModels(cfg.Provider)
	cfg.ChatModel = envStr("CHAT_MODEL", chat)
	cfg.EvalModel = envStr("EVAL_MODEL", eval)
	return cfg
}

func defaultModels(provider string) (chat, eval string) {
	switch provider {
	case ProviderGemini:
		return "gemini-2.5-flash", "gemini-2.5-flash"
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514", "claude-sonnet-4-20250514"
	default:
		return "mock-chat", "mock-eval"
	}
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderMock:
		// The mock answers per model name, so one name cannot serve both roles.
		if c.ChatModel == c.EvalModel {
			errs = append(errs, fmt.Errorf("CHAT_MODEL and EVAL_MODEL must differ when PROVIDER=mock, both are %q", c.ChatModel))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when PROVIDER=gemini"))
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required when PROVIDER=anthropic"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PROVIDER %q", c.Provider))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid HUMANEBENCH_PORT %d", c.Port))
	}
	if c.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("MAX_TURNS_PER_SESSION must not be negative, got %d", c.MaxTurns))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("MAX_SESSIONS must not be negative, got %d", c.MaxSessions))
	}
	if c.SlackBotToken != "" && c.SlackChannel == "" {
		errs = append(errs, errors.New("SLACK_INCIDENTS_CHANNEL is required when SLACK_BOT_TOKEN is set"))
	}
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatPtr(key string) *float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

// envDuration accepts Go duration strings ("30s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
