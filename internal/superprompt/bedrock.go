package superprompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	bedrockAnthropicVersion = "bedrock-2023-05-31"
	bedrockMaxTokens        = 8096
	defaultBedrockModel     = "anthropic.claude-3-5-sonnet-20241022-v2:0"
)

var ErrEmptyCompletion = errors.New("completion returned no text")

type BedrockOptions struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	ModelID         string
	HTTPClient      *http.Client
	// Endpoint overrides the regional Bedrock runtime endpoint.
	Endpoint string
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func NewBedrock(ctx context.Context, opts BedrockOptions) (Func, error) {
	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, errors.New("missing AWS credentials")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	modelID := opts.ModelID
	if modelID == "" {
		modelID = defaultBedrockModel
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(opts.HTTPClient))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return func(ctx context.Context, prompt string) (string, error) {
		body, err := encodeBedrockRequest(prompt)
		if err != nil {
			return "", err
		}
		out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(modelID),
			Body:        body,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if err != nil {
			return "", fmt.Errorf("bedrock invoke: %w", err)
		}
		return decodeBedrockResponse(out.Body)
	}, nil
}

func encodeBedrockRequest(prompt string) ([]byte, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        bedrockMaxTokens,
		Messages:         []bedrockMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bedrock request: %w", err)
	}
	return body, nil
}

func decodeBedrockResponse(raw []byte) (string, error) {
	var resp bedrockResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(resp.Content) == 0 || strings.TrimSpace(resp.Content[0].Text) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Content[0].Text, nil
}
