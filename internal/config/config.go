package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	BaseURL        string
	DataDir        string
	MaxUploadBytes int64
	LinkSecret     string
	LinkTTL        time.Duration
	WorkspaceTTL   time.Duration
	MergeDelay     time.Duration
	Env            string
	LogFile        string
	AllowedOrigins []string
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "8080")
	cfg.BaseURL = strings.TrimRight(envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port)), "/")
	cfg.LinkSecret = envOrDefault("LINK_SECRET", "change-me")
	cfg.DataDir = envOrDefault("DATA_DIR", "data")
	cfg.Env = envOrDefault("APP_ENV", "development")
	cfg.LogFile = os.Getenv("LOG_FILE")
	cfg.AllowedOrigins = splitList(envOrDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080"))

	linkTTLSeconds, err := parseIntEnv("LINK_TTL_SECONDS", 600)
	if err != nil {
		return Config{}, fmt.Errorf("parse LINK_TTL_SECONDS: %w", err)
	}
	cfg.LinkTTL = time.Duration(linkTTLSeconds) * time.Second

	workspaceTTLMinutes, err := parseIntEnv("WORKSPACE_TTL_MINUTES", 60)
	if err != nil {
		return Config{}, fmt.Errorf("parse WORKSPACE_TTL_MINUTES: %w", err)
	}
	cfg.WorkspaceTTL = time.Duration(workspaceTTLMinutes) * time.Minute

	mergeDelayMS, err := parseIntEnv("MERGE_DELAY_MS", 1500)
	if err != nil {
		return Config{}, fmt.Errorf("parse MERGE_DELAY_MS: %w", err)
	}
	cfg.MergeDelay = time.Duration(mergeDelayMS) * time.Millisecond

	maxUploadMB, err := parseIntEnv("MAX_UPLOAD_MB", 50)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if num < 0 {
		return 0, fmt.Errorf("negative value %d", num)
	}
	return num, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
