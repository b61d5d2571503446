package vision

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ui-screenshot-to-prompt/internal/imaging"
	"ui-screenshot-to-prompt/internal/resilience"
)

const azureMaxTokens = 1500

var ErrNoChoices = errors.New("completion returned no choices")

type AzureOptions struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	HTTPClient *http.Client
}

type Azure struct {
	client     *openai.Client
	deployment string
}

func NewAzure(opts AzureOptions) *Azure {
	cfg := openai.DefaultAzureConfig(opts.APIKey, opts.Endpoint)
	if opts.APIVersion != "" {
		cfg.APIVersion = opts.APIVersion
	}
	deployment := strings.TrimSpace(opts.Deployment)
	if deployment == "" {
		deployment = "gpt-4o"
	}
	cfg.AzureModelMapperFunc = func(string) string { return deployment }
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &Azure{client: openai.NewClientWithConfig(cfg), deployment: deployment}
}

func (a *Azure) Name() string { return "azure-openai" }

func (a *Azure) Describe(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	if mimeType == "" {
		mimeType = "image/png"
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	if len(data) > 0 {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imaging.DataURL(mimeType, data),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		MaxTokens:   azureMaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", resilience.FromSDK(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
