package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ui-screenshot-to-prompt/internal/resilience"
)

var (
	once sync.Once

	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ui2prompt",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Screenshots processed, labeled by detection method and result.",
	}, []string{"method", "result"})

	PipelineDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ui2prompt",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "End-to-end time to turn a screenshot into a prompt.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"method"})

	RegionsPerImage = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ui2prompt",
		Subsystem: "pipeline",
		Name:      "regions_per_image",
		Help:      "Regions or components detected per screenshot.",
		Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 24},
	}, []string{"method"})

	DuplicateRegionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ui2prompt",
		Subsystem: "pipeline",
		Name:      "duplicate_regions_total",
		Help:      "Regions skipped because they repeat an earlier region.",
	})

	PipelinesInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ui2prompt",
		Subsystem: "pipeline",
		Name:      "in_flight",
		Help:      "Pipelines currently running.",
	})

	LLMCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ui2prompt",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "LLM calls, labeled by provider, kind (vision or super_prompt) and result.",
	}, []string{"provider", "kind", "result"})

	LLMLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ui2prompt",
		Subsystem: "llm",
		Name:      "latency_seconds",
		Help:      "LLM call latency including retries.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"provider", "kind"})

	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ui2prompt",
		Subsystem: "llm",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per provider (0 closed, 1 open, 2 half-open).",
	}, []string{"provider"})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ui2prompt",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ui2prompt",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})
)

// Register is safe to call more than once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PipelineRunsTotal,
			PipelineDurationSeconds,
			RegionsPerImage,
			DuplicateRegionsTotal,
			PipelinesInFlight,
			LLMCallsTotal,
			LLMLatencySeconds,
			BreakerState,
			RateLimitedTotal,
			HTTPRequestsTotal,
		)
	})
}

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// BreakerHook mirrors circuit breaker transitions into BreakerState.
func BreakerHook(name string, _, to resilience.State) {
	BreakerState.WithLabelValues(name).Set(float64(to))
}
