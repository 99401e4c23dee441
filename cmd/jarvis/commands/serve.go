package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jarvis-agent/handler"
	"jarvis-agent/internal/digest"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook over HTTP and run the digest on its schedule",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (default LISTEN_ADDR)")
	cmd.Flags().Bool("no-cron", false, "do not schedule the morning digest")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Logger

	webhook, err := handler.NewHandler(a.Orchestrator,
		handler.WithCallbackAnswerer(a.Telegram),
		handler.WithLogger(logger))
	if err != nil {
		return err
	}
	digestHandler, err := handler.NewDigestHandler(a.Digest, logger)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.Config.ListenAddr
	}

	noCron, _ := cmd.Flags().GetBool("no-cron")
	var scheduler *digest.Scheduler
	if !noCron {
		scheduler, err = digest.NewScheduler(a.Digest, a.Config.DigestSchedule, a.Config.Location, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		logger.Info("digest scheduled", "schedule", a.Config.DigestSchedule, "tz", a.Config.Location.String())
	}

	srv := handler.NewServer(webhook, digestHandler)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.Start(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping...")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("digest scheduler did not stop cleanly", "err", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}
