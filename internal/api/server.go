package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/pipeline"
)

const (
	EndPointProcessImage    = "/process-image"
	EndPointProcessImageURL = "/process-image-url"
	EndPointVisualize       = "/visualize"
	EndPointHealth          = "/health"
	EndPointMetrics         = "/metrics"
)

// Pipeline is the part of *pipeline.Processor the HTTP layer uses.
type Pipeline interface {
	Process(ctx context.Context, data []byte, opts pipeline.Options) (pipeline.Result, error)
	Visualize(data []byte, method detect.Method) (pipeline.Visualization, error)
	VisionProvider() string
	SuperPromptProvider() string
}

type Options struct {
	Pipeline         Pipeline
	HTTPClient       *http.Client
	Logger           *slog.Logger
	Defaults         pipeline.Options
	MaxUploadBytes   int64
	MaxDownloadBytes int64
	RequestTimeout   time.Duration
	MaxConcurrent    int
	RateLimitPerMin  int
	AllowedOrigins   []string
}

type Server struct {
	pipeline         Pipeline
	httpClient       *http.Client
	logger           *slog.Logger
	defaults         pipeline.Options
	maxUploadBytes   int64
	maxDownloadBytes int64
	requestTimeout   time.Duration
	gate             chan struct{}
	rateLimitPerMin  int
	allowedOrigins   []string
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}
	maxDownload := opts.MaxDownloadBytes
	if maxDownload <= 0 {
		maxDownload = 16 << 20
	}

	return &Server{
		pipeline:         opts.Pipeline,
		httpClient:       httpClient,
		logger:           logger,
		defaults:         opts.Defaults,
		maxUploadBytes:   maxUpload,
		maxDownloadBytes: maxDownload,
		requestTimeout:   timeout,
		gate:             make(chan struct{}, maxConcurrent),
		rateLimitPerMin:  opts.RateLimitPerMin,
		allowedOrigins:   opts.AllowedOrigins,
	}
}

// Handler builds the gin engine with all routes and middleware.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(recovery(s.logger), requestID(), accessLog(s.logger), cors.New(corsConfig(s.allowedOrigins)))

	router.GET(EndPointHealth, s.health)
	router.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	limited := router.Group("/")
	if s.rateLimitPerMin > 0 {
		limited.Use(rateLimit(newIPLimiter(s.rateLimitPerMin), s.logger))
	}
	limited.Use(timeout(s.requestTimeout))
	{
		limited.POST(EndPointVisualize, s.visualize)

		processing := limited.Group("/")
		processing.Use(concurrencyGate(s.gate))
		processing.POST(EndPointProcessImage, s.processImage)
		processing.POST(EndPointProcessImageURL, s.processImageURL)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders: []string{headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
