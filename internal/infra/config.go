package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderConfig holds the credentials and endpoint of one upstream API.
// An empty APIKey leaves the provider unconfigured; it may still be supplied
// from the integration token table at startup.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	StoragePath      string
	StorageBaseURL   string
	StorageAllowHTTP bool
	GeoIPDBPath      string
	ProfilePath      string
	DefaultLocale    string

	Gemini       ProviderConfig
	GeminiVision string
	DashScope    ProviderConfig
	Pexels       ProviderConfig
	MediaJobs    ProviderConfig
	TTS          ProviderConfig
	TTSVoice     string

	PollInterval    time.Duration
	PollMaxAttempts int

	WorkerConcurrency int
	WorkerIdleSleep   time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	GenerationLimit  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		ProfilePath:      os.Getenv("PIPELINE_PROFILE_PATH"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en-US"),
		Gemini: ProviderConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:   getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		},
		GeminiVision: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		DashScope: ProviderConfig{
			APIKey:  os.Getenv("DASHSCOPE_API_KEY"),
			BaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
			Model:   getEnv("DASHSCOPE_IMAGE_MODEL", "wan2.2-t2i-flash"),
		},
		Pexels: ProviderConfig{
			APIKey:  os.Getenv("PEXELS_API_KEY"),
			BaseURL: getEnv("PEXELS_BASE_URL", "https://api.pexels.com"),
		},
		MediaJobs: ProviderConfig{
			APIKey:  os.Getenv("MEDIAJOBS_API_KEY"),
			BaseURL: os.Getenv("MEDIAJOBS_BASE_URL"),
		},
		TTS: ProviderConfig{
			APIKey:  os.Getenv("TTS_API_KEY"),
			BaseURL: os.Getenv("TTS_BASE_URL"),
			Model:   getEnv("TTS_MODEL", "tts-standard"),
		},
		TTSVoice:          getEnv("TTS_VOICE", "narrator"),
		PollInterval:      time.Second * time.Duration(getEnvInt("PROVIDER_POLL_INTERVAL_SECONDS", 5)),
		PollMaxAttempts:   getEnvInt("PROVIDER_POLL_MAX_ATTEMPTS", 60),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerIdleSleep:   time.Millisecond * time.Duration(getEnvInt("WORKER_IDLE_SLEEP_MS", 2000)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		GenerationLimit:   getEnvInt("GENERATION_RATE_LIMIT_PER_MINUTE", 6),
	}
	cfg.StorageAllowHTTP = getEnvBool("STORAGE_ALLOW_HTTP", cfg.AppEnv == "development")
	origins := "*"
	if cfg.AppEnv != "development" {
		origins = ""
	}
	cfg.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", origins))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := url.Parse(cfg.StorageBaseURL); err != nil {
		return nil, fmt.Errorf("STORAGE_BASE_URL is invalid: %w", err)
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.PollMaxAttempts < 1 {
		return nil, fmt.Errorf("PROVIDER_POLL_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// TrustedPrefixes lists URL prefixes served by our own object store.
func (c *Config) TrustedPrefixes() []string {
	base := strings.TrimRight(strings.TrimSpace(c.StorageBaseURL), "/")
	if base == "" {
		return nil
	}
	return []string{base + "/"}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
