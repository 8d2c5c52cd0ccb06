// Package config provides configuration loading for the OCR upload client.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
)

// Config holds all configuration for the client, web UI and mock backend.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Upload        UploadConfig        `yaml:"upload"`
	Server        ServerConfig        `yaml:"server"`
	Mock          MockConfig          `yaml:"mock"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// APIConfig locates the OCR service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig holds the file acceptance policy.
type UploadConfig struct {
	MaxFileSize  int64    `yaml:"max_file_size"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// ServerConfig holds web UI listener settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// MockConfig holds mock OCR backend settings.
type MockConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// Variables from a .env file in the working directory are picked up without
// replacing ones already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration pointing at a local development backend.
func DefaultConfig() *Config {
	policy := upload.DefaultPolicy()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 60 * time.Second,
		},
		Upload: UploadConfig{
			MaxFileSize:  policy.MaxSize,
			AllowedTypes: policy.AllowedTypes,
		},
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     90 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Mock: MockConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base_url %q: %w", c.API.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max_file_size must be positive, got %d", c.Upload.MaxFileSize)
	}

	if len(c.Upload.AllowedTypes) == 0 {
		return fmt.Errorf("upload allowed_types must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Mock.Port < 1 || c.Mock.Port > 65535 {
		return fmt.Errorf("invalid mock port: %d", c.Mock.Port)
	}

	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s", c.Observability.LogFormat)
	}

	return nil
}

// UploadPolicy converts the upload section into a validator policy.
func (c *Config) UploadPolicy() upload.Policy {
	return upload.Policy{
		AllowedTypes: append([]string(nil), c.Upload.AllowedTypes...),
		MaxSize:      c.Upload.MaxFileSize,
	}
}

// ServerAddr returns the web UI listen address.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MockAddr returns the mock backend listen address.
func (c *Config) MockAddr() string {
	return fmt.Sprintf("%s:%d", c.Mock.Host, c.Mock.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VITE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("OCR_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("OCR_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = d
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("MOCK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mock.Port = port
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
