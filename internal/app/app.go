// Package app wires configuration into a ready pipeline for the entrypoints.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"ui-screenshot-to-prompt/internal/config"
	"ui-screenshot-to-prompt/internal/httpclient"
	"ui-screenshot-to-prompt/internal/metrics"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/resilience"
	"ui-screenshot-to-prompt/internal/superprompt"
	"ui-screenshot-to-prompt/internal/vision"
)

func HTTPClient(cfg config.Config) *http.Client {
	return httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})
}

// NewProcessor builds the vision model, the super prompt provider and the pipeline.
func NewProcessor(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (*pipeline.Processor, error) {
	model, err := vision.New(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Name: "vision-" + model.Name()}).
		WithHook(metrics.BreakerHook)
	model = vision.Resilient(model, resilience.DefaultRetryConfig(), breaker)

	super, err := superprompt.Select(ctx, superprompt.Options{
		AWS:        cfg.AWS,
		Anthropic:  cfg.Anthropic,
		OpenRouter: cfg.OpenRouter,
		HTTPClient: httpClient,
		Logger:     logger,
		Retry:      resilience.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("super prompt: %w", err)
	}

	return pipeline.New(pipeline.Config{
		Vision:            model,
		SuperPrompt:       super,
		Logger:            logger,
		MaxDimension:      cfg.MaxImageDimension,
		RegionConcurrency: cfg.RegionConcurrency,
		DuplicateDistance: cfg.DuplicateHashDistance,
	})
}

// Defaults are the per-request options used when a caller sets none.
func Defaults(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		Method:  cfg.DetectionMethod,
		Size:    cfg.PromptSize,
		Elevate: cfg.ElevatePrompt,
	}
}
