// Package classifier turns a user message into a validated domain.Intent using
// an external language model, with keyword fallbacks and output guards.
package classifier

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"jarvis-agent/internal/domain"
	"jarvis-agent/internal/llm"
)

type Classifier struct {
	llm     llm.Generator
	loc     *time.Location
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Classifier)

// WithLocation sets the zone used for "now" in the prompt and for naive
// timestamps in the output.
func WithLocation(loc *time.Location) Option {
	return func(c *Classifier) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(gen llm.Generator, opts ...Option) (*Classifier, error) {
	if gen == nil {
		return nil, errors.New("classifier: generator must not be nil")
	}
	c := &Classifier{
		llm:     gen,
		loc:     time.UTC,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "classifier")
	return c, nil
}

// Classify never fails: a remote or parse failure yields the keyword
// fallback, and converse replies always pass through the guards. The remote
// call is made once, without retries.
func (c *Classifier) Classify(ctx context.Context, text string, history []domain.Turn, isVoice bool) domain.Intent {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.llm.Generate(ctx, llm.Request{
		System:     systemPrompt,
		Prompt:     buildPrompt(c.now().In(c.loc), text, history, isVoice),
		SchemaName: "intent_classification",
		Schema:     intentSchema,
	})
	if err != nil {
		c.logger.Warn("classification request failed, using keyword fallback",
			"err", err, "input", truncateForLog(text, 50), "latency_ms", time.Since(start).Milliseconds())
		return applyGuards(keywordFallback(text), text)
	}

	intent, err := parseIntent(raw, c.loc)
	if err != nil {
		c.logger.Warn("unparseable classification, using keyword fallback",
			"err", err, "content", truncateForLog(raw, 200))
		return applyGuards(keywordFallback(text), text)
	}
	if intent.Kind == domain.IntentUnknown {
		c.logger.Warn("unknown intent tag from model", "content", truncateForLog(raw, 200))
	}

	c.logger.Debug("classification completed",
		"intent", intent.Kind, "latency_ms", time.Since(start).Milliseconds(), "voice", isVoice)
	return applyGuards(intent, text)
}

func truncateForLog(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
