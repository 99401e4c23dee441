// Package app constructs the object graph shared by every entrypoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"jarvis-agent/internal/classifier"
	"jarvis-agent/internal/config"
	"jarvis-agent/internal/digest"
	"jarvis-agent/internal/dispatch"
	"jarvis-agent/internal/idempotency"
	"jarvis-agent/internal/integrations/gcal"
	"jarvis-agent/internal/integrations/gdrive"
	"jarvis-agent/internal/integrations/gemini"
	"jarvis-agent/internal/integrations/openai"
	"jarvis-agent/internal/integrations/paramstore"
	"jarvis-agent/internal/integrations/telegram"
	"jarvis-agent/internal/llm"
	"jarvis-agent/internal/memory"
	"jarvis-agent/internal/repository"
	"jarvis-agent/internal/resolver"
	"jarvis-agent/internal/usecase"
)

const redisKeyPrefix = "jarvis:evt:"

type App struct {
	Config       config.Config
	Logger       *slog.Logger
	Orchestrator *usecase.Orchestrator
	Classifier   *classifier.Classifier
	Digest       *digest.Runner
	Telegram     *telegram.Client

	closers []io.Closer
}

// NewLogger returns the JSON logger used by every entrypoint.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Build wires every component from cfg. The Google service-account
// credentials are fetched from Parameter Store here, once per process.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}

	// ---- Clients ----
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: paramstore: %w", err)
	}
	repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable,
		repository.WithProcessedTTL(cfg.ProcessedTTL))
	if err != nil {
		return nil, fmt.Errorf("app: repository: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	marker, err := a.newMarker(cfg, repo)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	guard, err := idempotency.NewGuard(marker,
		idempotency.WithTimeout(cfg.CallTimeout),
		idempotency.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("app: guard: %w", err), a.Close())
	}

	store, err := memory.New(repo,
		memory.WithHistoryLimit(cfg.HistoryLimit),
		memory.WithResetLimit(cfg.ResetLimit),
		memory.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("app: memory: %w", err), a.Close())
	}

	provider, err := NewProvider(cfg, ps)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	if a.Telegram, err = telegram.NewClient(ps, cfg.ParamPrefix, telegram.WithLogger(logger)); err != nil {
		return nil, errors.Join(fmt.Errorf("app: telegram: %w", err), a.Close())
	}

	cal, files, err := newGoogleClients(ctx, cfg, ps)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	res, err := resolver.New(files)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("app: resolver: %w", err), a.Close())
	}

	// ---- Core ----
	dispatcher, err := dispatch.New(dispatch.Deps{
		Calendar:   cal,
		Tasks:      repo,
		Expenses:   repo,
		Files:      files,
		Resolver:   res,
		Memory:     store,
		Summarizer: provider,
	},
		dispatch.WithLocation(cfg.Location),
		dispatch.WithCallTimeout(cfg.CallTimeout),
		dispatch.WithReadPrefixChars(cfg.ReadPrefixChars),
		dispatch.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("app: dispatcher: %w", err), a.Close())
	}

	if a.Classifier, err = classifier.New(provider,
		classifier.WithLocation(cfg.Location),
		classifier.WithTimeout(cfg.CallTimeout),
		classifier.WithLogger(logger)); err != nil {
		return nil, errors.Join(fmt.Errorf("app: classifier: %w", err), a.Close())
	}

	if a.Orchestrator, err = usecase.NewOrchestrator(guard, store, a.Classifier, dispatcher, a.Telegram, provider,
		usecase.WithCallTimeout(cfg.CallTimeout),
		usecase.WithLogger(logger)); err != nil {
		return nil, errors.Join(fmt.Errorf("app: orchestrator: %w", err), a.Close())
	}

	if a.Digest, err = digest.NewRunner(digest.Deps{
		Conversations: repo,
		Agenda:        cal,
		Tasks:         repo,
		Generator:     provider,
		Notifier:      a.Telegram,
	},
		digest.WithLocation(cfg.Location),
		digest.WithCallTimeout(cfg.CallTimeout),
		digest.WithSendInterval(cfg.DigestSendInterval),
		digest.WithLogger(logger)); err != nil {
		return nil, errors.Join(fmt.Errorf("app: digest: %w", err), a.Close())
	}

	return a, nil
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) newMarker(cfg config.Config, repo *repository.Client) (idempotency.Marker, error) {
	if cfg.IdempotencyBackend != config.BackendRedis {
		return repo, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	a.closers = append(a.closers, rdb)
	m, err := idempotency.NewRedisMarker(rdb, redisKeyPrefix, cfg.ProcessedTTL)
	if err != nil {
		return nil, fmt.Errorf("app: redis marker: %w", err)
	}
	return m, nil
}

// NewProvider returns the LLM collaborator selected by LLM_PROVIDER. Tokens
// are read lazily, so no network call happens here.
func NewProvider(cfg config.Config, ps paramstore.Getter) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ps, cfg.ParamPrefix, gemini.WithModel(cfg.GeminiModel))
		if err != nil {
			return nil, fmt.Errorf("app: gemini: %w", err)
		}
		return c, nil
	case config.ProviderOpenAI, "":
		c, err := openai.NewClient(ps, cfg.ParamPrefix,
			openai.WithModel(cfg.OpenAIModel),
			openai.WithBaseURL(cfg.OpenAIBaseURL))
		if err != nil {
			return nil, fmt.Errorf("app: openai: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("app: unknown LLM provider %q", cfg.LLMProvider)
}

func newGoogleClients(ctx context.Context, cfg config.Config, ps paramstore.Getter) (*gcal.Client, *gdrive.Client, error) {
	secret, err := paramstore.NewRaw(ps, cfg.ParamPrefix+"/google-credentials")
	if err != nil {
		return nil, nil, fmt.Errorf("app: google credentials: %w", err)
	}
	raw, err := secret.Value(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("app: google credentials: %w", err)
	}
	creds := []byte(raw)

	email, err := gdrive.ClientEmail(creds)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}

	calSvc, err := gcal.NewService(ctx, creds)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}
	cal, err := gcal.New(calSvc, cfg.CalendarID, cfg.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}

	driveSvc, err := gdrive.NewService(ctx, creds)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}
	files, err := gdrive.New(driveSvc, gdrive.WithServiceAccountEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}
	return cal, files, nil
}
