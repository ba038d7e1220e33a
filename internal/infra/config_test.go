package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("APP_ENV", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
	if !cfg.StorageAllowHTTP {
		t.Fatalf("development should allow plain http storage URLs")
	}
	if got := cfg.TrustedPrefixes(); len(got) != 1 || got[0] != expected+"/" {
		t.Fatalf("TrustedPrefixes mismatch: %#v", got)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigProductionStorage(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static/")
	t.Setenv("STORAGE_ALLOW_HTTP", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageAllowHTTP {
		t.Fatalf("production must not allow plain http by default")
	}
	if got := cfg.TrustedPrefixes(); len(got) != 1 || got[0] != "https://cdn.example.com/static/" {
		t.Fatalf("TrustedPrefixes mismatch: %#v", got)
	}
}

func TestLoadConfigWorkerAndPolling(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("PROVIDER_POLL_INTERVAL_SECONDS", "3")
	t.Setenv("PROVIDER_POLL_MAX_ATTEMPTS", "10")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerConcurrency != 1 {
		t.Fatalf("WorkerConcurrency should be clamped to 1, got %d", cfg.WorkerConcurrency)
	}
	if cfg.PollInterval != 3*time.Second || cfg.PollMaxAttempts != 10 {
		t.Fatalf("poll config mismatch: %v x %d", cfg.PollInterval, cfg.PollMaxAttempts)
	}

	t.Setenv("PROVIDER_POLL_MAX_ATTEMPTS", "-1")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-positive poll attempts")
	}
}

func TestLoadConfigProviderKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("PEXELS_API_KEY", "p-key")
	t.Setenv("DASHSCOPE_IMAGE_MODEL", "wan-custom")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Gemini.APIKey != "g-key" || cfg.Pexels.APIKey != "p-key" {
		t.Fatalf("provider keys not loaded: %+v %+v", cfg.Gemini, cfg.Pexels)
	}
	if cfg.DashScope.Model != "wan-custom" {
		t.Fatalf("DashScope model mismatch: %q", cfg.DashScope.Model)
	}
	if cfg.Gemini.BaseURL == "" || cfg.GeminiVision == "" {
		t.Fatalf("Gemini defaults missing: %+v", cfg.Gemini)
	}
}

func TestLoadConfigAllowedOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg, _ = LoadConfig()
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("production should not allow any origin by default: %#v", cfg.AllowedOrigins)
	}
}
