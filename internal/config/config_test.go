package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"VITE_API_URL", "OCR_API_URL", "OCR_API_TIMEOUT",
	"SERVER_HOST", "SERVER_PORT", "MOCK_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.API.Timeout)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{"image/jpeg", "image/png"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, "127.0.0.1:8080", cfg.ServerAddr())
	assert.Equal(t, "127.0.0.1:5000", cfg.MockAddr())
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://ocr.example.com
  timeout: 15s
upload:
  max_file_size: 1048576
server:
  port: 9090
observability:
  log_level: debug
  log_format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ocr.example.com", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, int64(1048576), cfg.UploadPolicy().MaxSize)
	assert.Equal(t, []string{"image/jpeg", "image/png"}, cfg.UploadPolicy().AllowedTypes)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_API_URL", "http://vite.local:5000")
	t.Setenv("OCR_API_URL", "http://ocr.internal:7000")
	t.Setenv("OCR_API_TIMEOUT", "5s")
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("MOCK_PORT", "5055")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://ocr.internal:7000", cfg.API.BaseURL, "OCR_API_URL wins over VITE_API_URL")
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 5055, cfg.Mock.Port)
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
}

func TestLoad_ViteFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_API_URL", "http://vite.local:5000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://vite.local:5000", cfg.API.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("api: [unterminated"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "localhost:5000" }},
		{"non-http base url", func(c *Config) { c.API.BaseURL = "ftp://x" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"zero max size", func(c *Config) { c.Upload.MaxFileSize = 0 }},
		{"no allowed types", func(c *Config) { c.Upload.AllowedTypes = nil }},
		{"bad server port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad mock port", func(c *Config) { c.Mock.Port = 0 }},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
