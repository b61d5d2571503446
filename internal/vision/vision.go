package vision

import (
	"context"
	"log/slog"
	"net/http"

	"ui-screenshot-to-prompt/internal/apperr"
	"ui-screenshot-to-prompt/internal/config"
	"ui-screenshot-to-prompt/internal/gemini"
)

// Model answers a text prompt about one image.
type Model interface {
	Describe(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
	Name() string
}

// New picks Azure OpenAI when its key and endpoint are set, otherwise Gemini.
func New(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (Model, error) {
	switch {
	case cfg.Azure.Enabled():
		logger.Info("vision provider initialized", "provider", "azure-openai", "deployment", cfg.Azure.Deployment)
		return NewAzure(AzureOptions{
			APIKey:     cfg.Azure.APIKey,
			Endpoint:   cfg.Azure.Endpoint,
			Deployment: cfg.Azure.Deployment,
			APIVersion: cfg.Azure.APIVersion,
			HTTPClient: httpClient,
		}), nil
	case cfg.Gemini.Enabled():
		logger.Info("vision provider initialized", "provider", "gemini", "model", cfg.Gemini.Model)
		return gemini.New(gemini.Options{
			APIKey:     cfg.Gemini.APIKey,
			BaseURL:    cfg.Gemini.BaseURL,
			APIVersion: cfg.Gemini.APIVersion,
			Model:      cfg.Gemini.Model,
			HTTPClient: httpClient,
			Logger:     logger,
		}), nil
	default:
		return nil, apperr.New(apperr.NotConfigured, "missing Azure OpenAI or Gemini credentials")
	}
}
