package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/prompt"
)

type Config struct {
	WebAddr           string
	MaxConcurrent     int
	RegionConcurrency int
	RequestTimeout    time.Duration
	HTTPTimeout       time.Duration
	ShutdownTimeout   time.Duration
	PreferIPv4        bool
	MaxUploadBytes    int64
	MaxDownloadBytes  int64
	RateLimitPerMin   int
	AllowedOrigins    []string
	PIDFile           string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	Debug         bool

	DetectionMethod       detect.Method
	PromptSize            prompt.Size
	MaxImageDimension     int
	DuplicateHashDistance int
	ElevatePrompt         bool

	Azure  AzureConfig
	Gemini GeminiConfig

	AWS        AWSConfig
	Anthropic  AnthropicConfig
	OpenRouter OpenRouterConfig

	TelegramToken      string
	MediaGroupDebounce time.Duration
	SessionTTL         time.Duration
}

type AzureConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

func (a AzureConfig) Enabled() bool {
	return a.APIKey != "" && a.Endpoint != ""
}

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
}

func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

type AWSConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BedrockModelID  string
}

func (a AWSConfig) Enabled() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != ""
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func Load() (Config, error) {
	cfg := Config{
		WebAddr:           getEnv("WEB_ADDR", ":5001"),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT", 4),
		RegionConcurrency: getEnvInt("REGION_CONCURRENCY", 3),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		ShutdownTimeout:   time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		PreferIPv4:        getEnvBool("PREFER_IPV4", true),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 16)) << 20,
		MaxDownloadBytes:  int64(getEnvInt("MAX_DOWNLOAD_MB", 16)) << 20,
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:    getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		PIDFile:           getEnv("PID_FILE", ""),

		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		Debug:         getEnvBool("DEBUG", false),

		MaxImageDimension:     getEnvInt("MAX_IMAGE_DIMENSION", 2048),
		DuplicateHashDistance: getEnvInt("DUPLICATE_HASH_DISTANCE", 4),
		ElevatePrompt:         getEnvBool("ELEVATE_PROMPT", true),

		Azure: AzureConfig{
			APIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			Deployment: getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o"),
			APIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			BaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIVersion: getEnv("GEMINI_API_VERSION", "v1beta"),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		AWS: AWSConfig{
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			BedrockModelID:  getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		},
		Anthropic: AnthropicConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:  getEnv("OPENROUTER_API_KEY", ""),
			BaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:   getEnv("OPENROUTER_MODEL", "anthropic/claude-3-sonnet"),
		},

		TelegramToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MINUTES", 24*60)) * time.Minute,
	}

	method, err := detect.ParseMethod(getEnv("DETECTION_METHOD", string(detect.MethodBasic)))
	if err != nil {
		return Config{}, fmt.Errorf("DETECTION_METHOD: %w", err)
	}
	cfg.DetectionMethod = method

	size, err := prompt.ParseSize(getEnv("PROMPT_SIZE", string(prompt.SizeConcise)))
	if err != nil {
		return Config{}, fmt.Errorf("PROMPT_SIZE: %w", err)
	}
	cfg.PromptSize = size

	if !cfg.Azure.Enabled() && !cfg.Gemini.Enabled() {
		return Config{}, errors.New("missing Azure OpenAI or Gemini credentials")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RegionConcurrency < 1 {
		cfg.RegionConcurrency = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = 16 << 20
	}
	if cfg.RateLimitPerMin < 1 {
		cfg.RateLimitPerMin = 30
	}
	if cfg.MaxImageDimension < 256 {
		cfg.MaxImageDimension = 2048
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.DuplicateHashDistance < 0 {
		cfg.DuplicateHashDistance = -1
	}

	return cfg, nil
}

// RequireTelegram is checked by the bot entrypoint only; the web server runs without a token.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
