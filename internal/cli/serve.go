package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/supportbot/internal/jobs"
	"github.com/cloo-solutions/supportbot/internal/metrics"
	"github.com/cloo-solutions/supportbot/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		Long:  "Start the support chat API server. POST /chat answers questions from the knowledge document.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-warmup", false, "Skip fetching the knowledge document before accepting requests")
	bindEnv(cmd.Flags(), "port", "PORT")

	return usesConfig(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flush := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
	}, logger)
	defer flush()

	pipeline, err := NewPipeline(cfg, logger, metrics.New(), nil)
	if err != nil {
		return err
	}

	if noWarmup, _ := cmd.Flags().GetBool("no-warmup"); !noWarmup {
		if err := pipeline.Cache.Refresh(ctx); err != nil {
			logger.Warn("knowledge warmup failed, first request will retry", "error", err)
		}
	}

	var refresher *jobs.Worker
	if cfg.RefreshInterval > 0 {
		refresher = jobs.NewWorker("knowledge-refresh", jobs.NewRefreshProcessor(pipeline.Cache), cfg.RefreshInterval, logger)
		go refresher.Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           pipeline.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "knowledge_url", cfg.KnowledgeURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
