package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds ted2transcript configuration.
type Config struct {
	// Transcript language requested from ted.com
	Language string `yaml:"language"`

	HTTP    HTTPConfig    `yaml:"http"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	// Per-request timeout, empty means no timeout
	Timeout string `yaml:"timeout"`
}

// BatchConfig configures batch mode.
type BatchConfig struct {
	Workers   int     `yaml:"workers"`
	RateLimit float64 `yaml:"rate_limit"` // short links per second, 0 disables
	Burst     int     `yaml:"burst"`
	OutputDir string  `yaml:"output_dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language: "en",
		HTTP: HTTPConfig{
			Timeout: "",
		},
		Batch: BatchConfig{
			Workers:   4,
			RateLimit: 2,
			Burst:     1,
			OutputDir: "./transcripts",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TED2TRANSCRIPT_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("TED2TRANSCRIPT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TED2TRANSCRIPT_OUTPUT_DIR"); v != "" {
		c.Batch.OutputDir = v
	}
	if v := os.Getenv("TED2TRANSCRIPT_HTTP_TIMEOUT"); v != "" {
		c.HTTP.Timeout = v
	}
	if v := os.Getenv("TED2TRANSCRIPT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Batch.Workers = n
		}
	}
}

// GetHTTPTimeout returns the parsed HTTP timeout, zero when unset.
func (c *Config) GetHTTPTimeout() time.Duration {
	if c.HTTP.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetLogLevel returns the configured level, info when it cannot be parsed.
func (c *Config) GetLogLevel() zap.AtomicLevel {
	level, err := zap.ParseAtomicLevel(c.Logging.Level)
	if err != nil {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return level
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Language == "" {
		return fmt.Errorf("language is required")
	}
	if c.HTTP.Timeout != "" {
		d, err := time.ParseDuration(c.HTTP.Timeout)
		if err != nil {
			return fmt.Errorf("invalid http timeout %q: %w", c.HTTP.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("http timeout must not be negative")
		}
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Batch.RateLimit < 0 {
		return fmt.Errorf("batch rate limit must not be negative")
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return nil
}
