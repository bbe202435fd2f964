// Package config loads application configuration from environment
// variables and an optional YAML file. Environment values win over file
// values; both win over compiled-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces every environment variable, e.g. MARKETPULSE_SERVER_PORT.
const envPrefix = "MARKETPULSE"

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Collector CollectorConfig `yaml:"collector" envconfig:"COLLECTOR"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains CORS and rate limiting configuration.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig configures the per-client fixed-window request counter.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	Requests int           `yaml:"requests" envconfig:"REQUESTS" default:"120"`
	Window   time.Duration `yaml:"window" envconfig:"WINDOW" default:"1m"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/marketpulse.log"`
}

// DatabaseConfig contains the snapshot store connection. An empty DSN is
// not an error: the server runs in graceful-empty mode until storage is
// configured.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" envconfig:"DSN"`
}

// AnalyticsConfig bounds the query parameters the analytics endpoints accept.
type AnalyticsConfig struct {
	DefaultLookbackHours int `yaml:"default_lookback_hours" envconfig:"DEFAULT_LOOKBACK_HOURS" default:"24"`
	MaxLookbackHours     int `yaml:"max_lookback_hours" envconfig:"MAX_LOOKBACK_HOURS" default:"720"`
	DefaultLimit         int `yaml:"default_limit" envconfig:"DEFAULT_LIMIT" default:"10"`
	MaxLimit             int `yaml:"max_limit" envconfig:"MAX_LIMIT" default:"100"`
}

// CollectorConfig configures the snapshot collector binary.
type CollectorConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.exchange.local"`
	Symbols           []string      `yaml:"symbols" envconfig:"SYMBOLS" default:"BTC/USDT,ETH/USDT,SOL/USDT"`
	Interval          time.Duration `yaml:"interval" envconfig:"INTERVAL" default:"5m"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"5"`
	RequestTimeout    time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"10s"`
}

// Load loads configuration from the environment and, when present, the
// YAML file named by MARKETPULSE_CONFIG (default config.yaml).
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	configFile := os.Getenv(envPrefix + "_CONFIG")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// merge overlays env-derived values on top of file values. envconfig has
// already applied struct defaults, so only fields the file sets and the
// environment left untouched need to flow through; for scalar fields the
// file value wins only when the corresponding env var was absent.
func merge(file, env Config) Config {
	out := env

	if _, ok := lookupSection("SERVER_PORT"); !ok && file.Server.Port != 0 {
		out.Server.Port = file.Server.Port
	}
	if _, ok := lookupSection("DATABASE_DSN"); !ok && file.Database.DSN != "" {
		out.Database.DSN = file.Database.DSN
	}
	if _, ok := lookupSection("LOGGING_LEVEL"); !ok && file.Logging.Level != "" {
		out.Logging.Level = file.Logging.Level
	}
	if _, ok := lookupSection("LOGGING_OUTPUT"); !ok && file.Logging.Output != "" {
		out.Logging.Output = file.Logging.Output
	}
	if _, ok := lookupSection("COLLECTOR_BASE_URL"); !ok && file.Collector.BaseURL != "" {
		out.Collector.BaseURL = file.Collector.BaseURL
	}
	if _, ok := lookupSection("COLLECTOR_SYMBOLS"); !ok && len(file.Collector.Symbols) > 0 {
		out.Collector.Symbols = file.Collector.Symbols
	}
	if _, ok := lookupSection("SECURITY_ALLOWED_ORIGINS"); !ok && len(file.Security.AllowedOrigins) > 0 {
		out.Security.AllowedOrigins = file.Security.AllowedOrigins
	}

	return out
}

// lookupSection checks whether the prefixed env var was set.
func lookupSection(name string) (string, bool) {
	return os.LookupEnv(envPrefix + "_" + name)
}

// validate rejects configurations the server cannot run with.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Analytics.DefaultLookbackHours < 1 || c.Analytics.DefaultLookbackHours > c.Analytics.MaxLookbackHours {
		return fmt.Errorf("invalid default lookback hours: %d", c.Analytics.DefaultLookbackHours)
	}
	if c.Analytics.DefaultLimit < 1 || c.Analytics.DefaultLimit > c.Analytics.MaxLimit {
		return fmt.Errorf("invalid default limit: %d", c.Analytics.DefaultLimit)
	}
	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.Requests < 1 {
			return fmt.Errorf("invalid rate limit request count: %d", c.Security.RateLimit.Requests)
		}
		if c.Security.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window: %s", c.Security.RateLimit.Window)
		}
	}
	return nil
}
