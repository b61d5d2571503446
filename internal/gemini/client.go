package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ui-screenshot-to-prompt/internal/resilience"
)

const defaultModel = "gemini-2.5-flash"

const systemInstruction = `You are a senior front-end engineer reviewing UI screenshots.
Answer precisely and only about what is visible. Prefer concrete values (hex colors, pixel sizes, font weights) over vague adjectives.`

var ErrEmptyAnswer = errors.New("gemini returned no text")

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

func (c *Client) Name() string { return "gemini" }

// Describe sends prompt and one inline image and returns the model's text answer.
func (c *Client) Describe(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	parts := []part{{Text: strings.TrimSpace(prompt)}}
	if len(data) > 0 {
		if mimeType == "" {
			mimeType = "image/png"
		}
		parts = append(parts, part{InlineData: &blob{
			Data:     base64.StdEncoding.EncodeToString(data),
			MimeType: mimeType,
		}})
	}

	req := generateContentRequest{
		Contents:          []content{{Role: "user", Parts: parts}},
		SystemInstruction: &content{Role: "user", Parts: []part{{Text: systemInstruction}}},
		GenerationConfig:  generationConfig{Temperature: 0.2},
	}

	start := time.Now()
	text, err := c.generateContent(ctx, req)
	if err != nil {
		return "", err
	}
	c.logger.Debug("gemini answered", "model", c.model, "chars", len(text), "elapsed", time.Since(start))
	return text, nil
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (string, error) {
	if c.httpClient == nil {
		return "", errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return "", &resilience.StatusError{
			Status: httpResp.StatusCode,
			Err:    fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody))),
		}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	text := strings.TrimSpace(extractText(decoded))
	if text == "" {
		if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyAnswer, decoded.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func extractText(resp generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
