package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func lookup(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"STATE_TABLE":  "jarvis-state",
		"PARAM_PREFIX": "/jarvis/",
	}))
	require.NoError(t, err)

	require.Equal(t, "jarvis-state", cfg.StateTable)
	require.Equal(t, "/jarvis", cfg.ParamPrefix)
	require.Equal(t, "America/Sao_Paulo", cfg.Location.String())
	require.Equal(t, 6, cfg.HistoryLimit)
	require.Equal(t, 50, cfg.ResetLimit)
	require.Equal(t, 5*time.Second, cfg.CallTimeout)
	require.Equal(t, 3000, cfg.ReadPrefixChars)
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	require.Equal(t, "primary", cfg.CalendarID)
	require.Equal(t, BackendDynamoDB, cfg.IdempotencyBackend)
	require.Equal(t, 168*time.Hour, cfg.ProcessedTTL)
	require.Equal(t, "0 7 * * *", cfg.DigestSchedule)
	require.Equal(t, 100*time.Millisecond, cfg.DigestSendInterval)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"STATE_TABLE":         "t",
		"PARAM_PREFIX":        "/p",
		"TIME_ZONE":           "UTC",
		"HISTORY_LIMIT":       "10",
		"CALL_TIMEOUT":        "2s",
		"LLM_PROVIDER":        "Gemini",
		"IDEMPOTENCY_BACKEND": "redis",
		"REDIS_ADDR":          "localhost:6379",
		"LOG_LEVEL":           "debug",
	}))
	require.NoError(t, err)

	require.Equal(t, time.UTC, cfg.Location)
	require.Equal(t, 10, cfg.HistoryLimit)
	require.Equal(t, 2*time.Second, cfg.CallTimeout)
	require.Equal(t, ProviderGemini, cfg.LLMProvider)
	require.Equal(t, BackendRedis, cfg.IdempotencyBackend)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnv_ReportsAllProblems(t *testing.T) {
	_, err := FromEnv(lookup(map[string]string{
		"HISTORY_LIMIT":       "many",
		"TIME_ZONE":           "Mars/Olympus",
		"LLM_PROVIDER":        "llama",
		"IDEMPOTENCY_BACKEND": "redis",
	}))
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"STATE_TABLE is required",
		"PARAM_PREFIX is required",
		"HISTORY_LIMIT",
		"TIME_ZONE",
		"LLM_PROVIDER",
		"REDIS_ADDR is required",
	} {
		require.Contains(t, msg, want)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STATE_TABLE", "from-env")
	t.Setenv("PARAM_PREFIX", "/jarvis")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.StateTable)
}
