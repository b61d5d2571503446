package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"ui-screenshot-to-prompt/internal/api"
	"ui-screenshot-to-prompt/internal/app"
	"ui-screenshot-to-prompt/internal/config"
	"ui-screenshot-to-prompt/internal/logging"
	"ui-screenshot-to-prompt/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := app.HTTPClient(cfg)
	processor, err := app.NewProcessor(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("pipeline init failed", "err", err)
		os.Exit(1)
	}

	server := api.New(api.Options{
		Pipeline:         processor,
		HTTPClient:       httpClient,
		Logger:           logger,
		Defaults:         app.Defaults(cfg),
		MaxUploadBytes:   cfg.MaxUploadBytes,
		MaxDownloadBytes: cfg.MaxDownloadBytes,
		RequestTimeout:   cfg.RequestTimeout,
		MaxConcurrent:    cfg.MaxConcurrent,
		RateLimitPerMin:  cfg.RateLimitPerMin,
		AllowedOrigins:   cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	if err := logging.WritePIDFile(cfg.PIDFile); err != nil {
		logger.Warn("pid file not written", "err", err)
	}
	defer func() {
		if err := logging.RemovePIDFile(cfg.PIDFile); err != nil {
			logger.Warn("pid file not removed", "err", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web started",
			"addr", cfg.WebAddr,
			"vision_provider", processor.VisionProvider(),
			"super_prompt_provider", processor.SuperPromptProvider(),
			"detection_method", cfg.DetectionMethod,
			"prompt_size", cfg.PromptSize,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "err", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
