package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "BASE_URL", "DATA_DIR", "MAX_UPLOAD_MB", "LINK_SECRET", "LINK_TTL_SECONDS",
		"WORKSPACE_TTL_MINUTES", "MERGE_DELAY_MS", "APP_ENV", "LOG_FILE", "ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 10*time.Minute, cfg.LinkTTL)
	assert.Equal(t, time.Hour, cfg.WorkspaceTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.MergeDelay)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.AllowedOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BASE_URL", "https://merge.example.com/")
	t.Setenv("MERGE_DELAY_MS", "0")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "https://merge.example.com", cfg.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.MergeDelay)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadConfigRejectsBadIntegers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_UPLOAD_MB")

	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("LINK_TTL_SECONDS", "-5")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINK_TTL_SECONDS")
}
