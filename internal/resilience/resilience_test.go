package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsRetryable(ErrOpen))
	assert.True(t, IsRetryable(&StatusError{Status: http.StatusTooManyRequests}))
	assert.True(t, IsRetryable(&StatusError{Status: http.StatusBadGateway}))
	assert.True(t, IsRetryable(fmt.Errorf("call: %w", &StatusError{Status: http.StatusRequestTimeout})))
	assert.False(t, IsRetryable(&StatusError{Status: http.StatusBadRequest}))
	assert.False(t, IsRetryable(errors.New("bad prompt")))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return &StatusError{Status: http.StatusServiceUnavailable}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return &StatusError{Status: http.StatusUnauthorized}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return &StatusError{Status: http.StatusInternalServerError}
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, fastRetry(), func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 4 * time.Second, JitterFactor: 0.2}.withDefaults()
	d := backoffDelay(cfg, 10)
	assert.LessOrEqual(t, d, 4*time.Second+400*time.Millisecond)
	assert.GreaterOrEqual(t, d, 4*time.Second-400*time.Millisecond)
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	var transitions []State
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 2, ResetTimeout: 20 * time.Millisecond, HalfOpenSuccesses: 1}).
		WithHook(func(_ string, _, to State) { transitions = append(transitions, to) })

	fail := func() (string, error) { return "", &StatusError{Status: http.StatusBadGateway} }
	ok := func() (string, error) { return "ok", nil }

	_, _ = Execute(b, fail)
	_, _ = Execute(b, fail)
	assert.Equal(t, Open, b.State())

	_, err := Execute(b, ok)
	assert.ErrorIs(t, err, ErrOpen)

	time.Sleep(30 * time.Millisecond)
	out, err := Execute(b, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, []State{Open, HalfOpen, Closed}, transitions)
}

func TestBreakerIgnoresPermanentErrors(t *testing.T) {
	b := NewBreaker(BreakerConfig{Threshold: 1})
	_, err := Execute(b, func() (int, error) { return 0, errors.New("bad request") })
	require.Error(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestFromSDK(t *testing.T) {
	assert.Nil(t, FromSDK(nil))

	wrapped := FromSDK(fmt.Errorf("chat: %w", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}))
	code, ok := StatusOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.True(t, IsRetryable(wrapped))

	plain := errors.New("plain")
	assert.Same(t, plain, FromSDK(plain))
}
