package vision

import (
	"context"
	"time"

	"ui-screenshot-to-prompt/internal/metrics"
	"ui-screenshot-to-prompt/internal/resilience"
)

type resilient struct {
	next    Model
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// Resilient wraps m with retries, a circuit breaker and call metrics.
func Resilient(m Model, retry resilience.RetryConfig, breaker *resilience.Breaker) Model {
	return &resilient{next: m, retry: retry, breaker: breaker}
}

func (r *resilient) Name() string { return r.next.Name() }

func (r *resilient) Describe(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	start := time.Now()
	var out string
	err := resilience.Retry(ctx, r.retry, func() error {
		var err error
		out, err = resilience.Execute(r.breaker, func() (string, error) {
			return r.next.Describe(ctx, prompt, mimeType, data)
		})
		return err
	})

	provider := r.next.Name()
	metrics.LLMLatencySeconds.WithLabelValues(provider, "vision").Observe(time.Since(start).Seconds())
	metrics.LLMCallsTotal.WithLabelValues(provider, "vision", metrics.Result(err)).Inc()
	return out, err
}
