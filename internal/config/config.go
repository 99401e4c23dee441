// Package config reads the process configuration. Nothing else in the module
// reads environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

type Config struct {
	StateTable  string
	ParamPrefix string
	Location    *time.Location

	HistoryLimit    int
	ResetLimit      int
	CallTimeout     time.Duration
	ReadPrefixChars int

	LLMProvider   string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiModel   string

	CalendarID string

	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	ProcessedTTL       time.Duration

	DigestSchedule     string
	DigestSendInterval time.Duration

	ListenAddr string
	LogLevel   slog.Level
}

// Load reads .env and .env.local (without overriding variables already set)
// and then the environment.
func Load() (Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	e := env{get: getenv}

	cfg := Config{
		StateTable:  e.required("STATE_TABLE"),
		ParamPrefix: strings.TrimRight(e.required("PARAM_PREFIX"), "/"),

		HistoryLimit:    e.integer("HISTORY_LIMIT", 6),
		ResetLimit:      e.integer("RESET_LIMIT", 50),
		CallTimeout:     e.duration("CALL_TIMEOUT", 5*time.Second),
		ReadPrefixChars: e.integer("READ_PREFIX_CHARS", 3000),

		LLMProvider:   strings.ToLower(e.str("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIModel:   e.str("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: e.str("OPENAI_BASE_URL", ""),
		GeminiModel:   e.str("GEMINI_MODEL", "gemini-2.0-flash"),

		CalendarID: e.str("CALENDAR_ID", "primary"),

		IdempotencyBackend: strings.ToLower(e.str("IDEMPOTENCY_BACKEND", BackendDynamoDB)),
		RedisAddr:          e.str("REDIS_ADDR", ""),
		RedisPassword:      e.str("REDIS_PASSWORD", ""),
		ProcessedTTL:       e.duration("PROCESSED_TTL", 168*time.Hour),

		DigestSchedule:     e.str("DIGEST_SCHEDULE", "0 7 * * *"),
		DigestSendInterval: e.duration("DIGEST_SEND_INTERVAL", 100*time.Millisecond),

		ListenAddr: e.str("LISTEN_ADDR", ":8080"),
	}

	tz := e.str("TIME_ZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.fail(fmt.Errorf("TIME_ZONE %q: %w", tz, err))
	}
	cfg.Location = loc

	if err := cfg.LogLevel.UnmarshalText([]byte(e.str("LOG_LEVEL", "info"))); err != nil {
		e.fail(fmt.Errorf("LOG_LEVEL: %w", err))
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderGemini:
	default:
		e.fail(fmt.Errorf("LLM_PROVIDER %q: want %s or %s", cfg.LLMProvider, ProviderOpenAI, ProviderGemini))
	}
	switch cfg.IdempotencyBackend {
	case BackendDynamoDB:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			e.fail(errors.New("REDIS_ADDR is required when IDEMPOTENCY_BACKEND=redis"))
		}
	default:
		e.fail(fmt.Errorf("IDEMPOTENCY_BACKEND %q: want %s or %s", cfg.IdempotencyBackend, BackendDynamoDB, BackendRedis))
	}

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

type env struct {
	get  func(string) string
	errs []error
}

func (e *env) fail(err error) {
	e.errs = append(e.errs, err)
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e *env) required(key string) string {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		e.fail(fmt.Errorf("%s is required", key))
	}
	return v
}

func (e *env) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		e.fail(fmt.Errorf("%s: want a positive integer, got %q", key, v))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.fail(fmt.Errorf("%s: want a positive duration, got %q", key, v))
		return def
	}
	return d
}
