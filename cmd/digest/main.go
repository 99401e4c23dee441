package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"jarvis-agent/handler"
	"jarvis-agent/internal/app"
	"jarvis-agent/internal/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewDigestHandler(a.Digest, logger)
	if err != nil {
		logger.Error("failed to create digest handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
