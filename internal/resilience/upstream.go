package resilience

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"
)

// FromSDK attaches the HTTP status carried by go-openai and Anthropic SDK
// errors so IsRetryable can classify them.
func FromSDK(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &StatusError{Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &StatusError{Status: reqErr.HTTPStatusCode, Err: err}
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) && antErr.StatusCode > 0 {
		return &StatusError{Status: antErr.StatusCode, Err: err}
	}
	return err
}
