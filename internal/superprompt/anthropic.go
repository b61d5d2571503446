package superprompt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ui-screenshot-to-prompt/internal/resilience"
)

const (
	anthropicMaxTokens    = 4096
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
)

type AnthropicOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewAnthropic(opts AnthropicOptions) Func {
	model := opts.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	return func(ctx context.Context, prompt string) (string, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: anthropicMaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("anthropic messages: %w", resilience.FromSDK(err))
		}

		var b strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if strings.TrimSpace(b.String()) == "" {
			return "", ErrEmptyCompletion
		}
		return b.String(), nil
	}
}
