package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"shipscan/scanner-api/internal/api"
	"shipscan/scanner-api/internal/config"
	"shipscan/scanner-api/internal/docker"
	"shipscan/scanner-api/internal/jobs"
	"shipscan/scanner-api/internal/logging"
	"shipscan/scanner-api/internal/scanners"
	"shipscan/scanner-api/internal/store"
	"shipscan/scanner-api/internal/summary"
	"shipscan/scanner-api/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build logger")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := newRunner(cfg.Scanner)
	if err != nil {
		return err
	}

	jobStore := store.NewMemoryStore()
	adapter := scanners.NewAdapter(cfg.Scanner.Adapter(), runner, logger)
	summarizer := summary.FromConfig(cfg.Summary.Client(), logger)

	hub := websocket.NewHub(jobStore.Get, logger)
	go hub.Run(ctx)

	// Jobs keep running until they finish; shutdown waits for them.
	orch := jobs.New(jobStore, adapter, summarizer, logger, jobs.WithNotifier(hub))

	handler := api.NewHandler(orch, hub, func() map[string]string {
		scannerMode := string(adapter.LastMode())
		if scannerMode == "" {
			scannerMode = "unprobed"
		}
		summaryMode := "fallback"
		if summarizer.Enabled() {
			summaryMode = "ai"
		}
		return map[string]string{
			"runner":  runner.Name(),
			"scanner": scannerMode,
			"summary": summaryMode,
		}
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("shipscan API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	if err := orch.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scan jobs still running at exit")
	}
	return nil
}

func newRunner(cfg config.ScannerConfig) (scanners.Runner, error) {
	if cfg.Runner == config.RunnerDocker {
		cli, err := docker.New()
		if err != nil {
			return nil, err
		}
		return docker.NewRunner(cli, cfg.Image), nil
	}
	return scanners.LocalRunner{Binary: cfg.Binary}, nil
}
