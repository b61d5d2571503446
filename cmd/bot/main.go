package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ui-screenshot-to-prompt/internal/app"
	"ui-screenshot-to-prompt/internal/config"
	"ui-screenshot-to-prompt/internal/handlers"
	"ui-screenshot-to-prompt/internal/logging"
	"ui-screenshot-to-prompt/internal/mediagroup"
	"ui-screenshot-to-prompt/internal/metrics"
	"ui-screenshot-to-prompt/internal/session"
	"ui-screenshot-to-prompt/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
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
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := app.HTTPClient(cfg)

	tg, err := telegram.New(telegram.Options{
		Token:        cfg.TelegramToken,
		HTTPClient:   httpClient,
		Logger:       logger,
		Debug:        cfg.Debug,
		MaxFileBytes: cfg.MaxDownloadBytes,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	processor, err := app.NewProcessor(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("pipeline init failed", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.Options{
		Defaults: session.Preferences{Method: cfg.DetectionMethod, Size: cfg.PromptSize},
		IdleTTL:  cfg.SessionTTL,
	})

	handler := handlers.New(handlers.Options{
		Telegram:          tg,
		Pipeline:          processor,
		Sessions:          sessions,
		Logger:            logger,
		Elevate:           cfg.ElevatePrompt,
		ScreenshotTimeout: cfg.RequestTimeout,
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()
			handler.HandleMediaGroup(ctx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	handler.SetMediaGroupAggregator(aggregator)

	go pruneSessions(ctx, sessions, cfg.SessionTTL)

	if err := logging.WritePIDFile(cfg.PIDFile); err != nil {
		logger.Warn("pid file not written", "err", err)
	}
	defer func() { _ = logging.RemovePIDFile(cfg.PIDFile) }()

	logger.Info("bot started",
		"username", tg.Username(),
		"vision_provider", processor.VisionProvider(),
		"super_prompt_provider", processor.SuperPromptProvider(),
	)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", "pending_albums", aggregator.Pending())
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

func pruneSessions(ctx context.Context, sessions *session.Store, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Prune()
		}
	}
}
