package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"jarvis-agent/internal/digest"
)

type DigestRunner interface {
	Run(ctx context.Context) (digest.Report, error)
}

// DigestHandler serves the scheduled (EventBridge) morning digest.
type DigestHandler struct {
	runner DigestRunner
	logger *slog.Logger
}

func NewDigestHandler(r DigestRunner, logger *slog.Logger) (*DigestHandler, error) {
	if r == nil {
		return nil, errors.New("handler: digest runner must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestHandler{runner: r, logger: logger.With("component", "digest-handler")}, nil
}

func (h *DigestHandler) Handle(ctx context.Context, ev events.CloudWatchEvent) (digest.Report, error) {
	h.logger.Info("digest triggered", "event_id", ev.ID, "source", ev.Source)
	report, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.Error("digest failed", "err", err)
		return report, err
	}
	return report, nil
}
