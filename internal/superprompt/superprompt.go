package superprompt

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ui-screenshot-to-prompt/internal/config"
	"ui-screenshot-to-prompt/internal/metrics"
	"ui-screenshot-to-prompt/internal/resilience"
)

// Func rewrites an assembled prompt through a secondary LLM.
type Func func(ctx context.Context, prompt string) (string, error)

type Provider struct {
	Name string
	Func Func
}

func (p Provider) Enabled() bool { return p.Func != nil }

type Options struct {
	AWS        config.AWSConfig
	Anthropic  config.AnthropicConfig
	OpenRouter config.OpenRouterConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
	Retry      resilience.RetryConfig
}

// Select returns the first provider whose credentials are present and whose
// client initialises: Bedrock, then Anthropic, then OpenRouter. The zero
// Provider means prompts are used as assembled.
func Select(ctx context.Context, opts Options) (Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.AWS.Enabled() {
		fn, err := NewBedrock(ctx, BedrockOptions{
			AccessKeyID:     opts.AWS.AccessKeyID,
			SecretAccessKey: opts.AWS.SecretAccessKey,
			Region:          opts.AWS.Region,
			ModelID:         opts.AWS.BedrockModelID,
			HTTPClient:      opts.HTTPClient,
		})
		if err == nil {
			logger.Info("AWS Bedrock client initialized and set as super prompt client", "model", opts.AWS.BedrockModelID)
			return wrap("bedrock", fn, opts.Retry), nil
		}
		logger.Error("failed to initialize AWS Bedrock client", "err", err)
	}
	if err := ctx.Err(); err != nil {
		return Provider{}, err
	}

	if opts.Anthropic.APIKey != "" {
		fn := NewAnthropic(AnthropicOptions{
			APIKey:     opts.Anthropic.APIKey,
			Model:      opts.Anthropic.Model,
			HTTPClient: opts.HTTPClient,
		})
		logger.Info("Anthropic client initialized and set as super prompt client", "model", opts.Anthropic.Model)
		return wrap("anthropic", fn, opts.Retry), nil
	}

	if opts.OpenRouter.APIKey != "" {
		fn := NewOpenRouter(OpenRouterOptions{
			APIKey:     opts.OpenRouter.APIKey,
			BaseURL:    opts.OpenRouter.BaseURL,
			Model:      opts.OpenRouter.Model,
			HTTPClient: opts.HTTPClient,
		})
		logger.Info("OpenRouter client initialized and set as super prompt client", "model", opts.OpenRouter.Model)
		return wrap("openrouter", fn, opts.Retry), nil
	}

	logger.Warn("no client available for super prompt generation")
	return Provider{}, nil
}

func wrap(name string, fn Func, retry resilience.RetryConfig) Provider {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Name: name}).WithHook(metrics.BreakerHook)
	return Provider{
		Name: name,
		Func: func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			var out string
			err := resilience.Retry(ctx, retry, func() error {
				var err error
				out, err = resilience.Execute(breaker, func() (string, error) {
					return fn(ctx, prompt)
				})
				return err
			})
			metrics.LLMLatencySeconds.WithLabelValues(name, "super_prompt").Observe(time.Since(start).Seconds())
			metrics.LLMCallsTotal.WithLabelValues(name, "super_prompt", metrics.Result(err)).Inc()
			return out, err
		},
	}
}
