package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabasePath    string        `yaml:"database_path"`
	ServerPort      string        `yaml:"server_port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RateLimit       string        `yaml:"rate_limit"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
	EnableHSTS      bool          `yaml:"enable_hsts"`
	ServerDebugMode bool          `yaml:"server_debug_mode"`
	OTELEnabled     bool          `yaml:"otel_enabled"`
	OTELEndpoint    string        `yaml:"otel_endpoint"`
}

// Load builds the configuration from an optional YAML file pointed at
// by CONFIG_FILE, with environment variables taking precedence over
// file values and defaults filling the rest.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("DATABASE_PATH is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be positive")
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DatabasePath:    "reminders.db",
		ServerPort:      "8080",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimit:       "20-S",
		RequestTimeout:  30 * time.Second,
		MaxRequestBytes: 1 << 20,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.RateLimit = getEnv("RATE_LIMIT", c.RateLimit)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.MaxRequestBytes = getEnvInt64("MAX_REQUEST_BYTES", c.MaxRequestBytes)
	c.EnableHSTS = getEnvBool("ENABLE_HSTS", c.EnableHSTS)
	c.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", c.ServerDebugMode)
	c.OTELEnabled = getEnvBool("OTEL_ENABLED", c.OTELEnabled)
	c.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTELEndpoint)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitAndTrim(origins)
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
