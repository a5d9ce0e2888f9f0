package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxUploadBytes = "52428800" // 50 MB
	defaultStreamInterval = "2s"
	defaultUploadBaseDir  = "./uploads"
	defaultStaticURLBase  = "/static/uploads"
	defaultScopeSecret    = "change-me-scope-secret"
)

// RuntimeConfig is the env-driven configuration for the media service.
type RuntimeConfig struct {
	AppEnv           string
	DatabaseURL      string
	UploadBaseDir    string
	StaticURLBase    string
	MaxUploadBytes   int64
	ProcessorToken   string
	ScopeTokenSecret string
	ScopeTokenTTL    time.Duration
	StreamInterval   time.Duration
}

func LoadRuntimeConfig() (*RuntimeConfig, error) {
	cfg := &RuntimeConfig{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.UploadBaseDir = getEnv("UPLOAD_BASE_DIR", defaultUploadBaseDir)
	cfg.StaticURLBase = getEnv("STATIC_URL_BASE", defaultStaticURLBase)
	cfg.ProcessorToken = strings.TrimSpace(os.Getenv("PROCESSOR_WEBHOOK_TOKEN"))
	cfg.ScopeTokenSecret = strings.TrimSpace(getEnv("SCOPE_TOKEN_SECRET", defaultScopeSecret))

	maxBytes, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", defaultMaxUploadBytes), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = maxBytes

	cfg.StreamInterval, err = parseDurationEnv("STATUS_STREAM_INTERVAL", defaultStreamInterval)
	if err != nil {
		return nil, err
	}
	cfg.ScopeTokenTTL, err = parseDurationEnv("SCOPE_TOKEN_TTL", "24h")
	if err != nil {
		return nil, err
	}

	if cfg.AppEnv == "prod" && cfg.ScopeTokenSecret == defaultScopeSecret {
		return nil, fmt.Errorf("SCOPE_TOKEN_SECRET must be set in prod")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
