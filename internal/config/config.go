// Package config loads candidash settings from layered YAML files and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default values.
const (
	DefaultAPIURL     = "http://localhost:8080"
	DefaultTimeout    = 30 * time.Second
	DefaultRedisKey   = "candidash:session"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultSampleRate = 1.0
)

// Config is the resolved candidash configuration.
type Config struct {
	APIURL     string          `yaml:"api_url"`
	AuthScheme string          `yaml:"auth_scheme,omitempty"` // "" sends Bearer, "-" sends the raw token
	Timeout    time.Duration   `yaml:"timeout"`
	Session    SessionConfig   `yaml:"session"`
	Signup     SignupConfig    `yaml:"signup,omitempty"`
	Log        LogConfig       `yaml:"log"`
	Telemetry  TelemetryConfig `yaml:"telemetry,omitempty"`
	Metrics    MetricsConfig   `yaml:"metrics,omitempty"`
}

// SessionConfig selects where the admin session is persisted.
type SessionConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path,omitempty"` // file backend; empty means ~/.candidash/session.json
	RedisURL string `yaml:"redis_url,omitempty"`
	RedisKey string `yaml:"redis_key,omitempty"`
}

// SignupConfig holds the candidate signup progress location.
type SignupConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint,omitempty"`
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig controls the prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
		Session: SessionConfig{
			Backend:  BackendFile,
			RedisKey: DefaultRedisKey,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Telemetry: TelemetryConfig{
			SampleRate: DefaultSampleRate,
		},
	}
}

// Validate checks the configuration for values the CLI cannot work with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cerrors.NewConfigInvalidError(fmt.Sprintf("api_url %q must be an absolute http(s) URL", c.APIURL))
	}
	if c.Timeout <= 0 {
		return cerrors.NewConfigInvalidError(fmt.Sprintf("timeout must be positive, got %s", c.Timeout))
	}

	switch c.Session.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			return cerrors.NewConfigInvalidError("session.redis_url is required for the redis backend")
		}
	default:
		return cerrors.NewConfigInvalidError(fmt.Sprintf("unknown session.backend %q (want file, memory or redis)", c.Session.Backend))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return cerrors.NewConfigInvalidError(fmt.Sprintf("unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return cerrors.NewConfigInvalidError(fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return cerrors.NewConfigInvalidError(fmt.Sprintf("telemetry.sample_rate must be within [0, 1], got %g", c.Telemetry.SampleRate))
	}
	return nil
}

// Keys lists the dot-notation keys understood by Get and Set.
func Keys() []string {
	return []string{
		"api_url", "auth_scheme", "timeout",
		"session.backend", "session.path", "session.redis_url", "session.redis_key",
		"signup.path",
		"log.level", "log.format",
		"telemetry.enabled", "telemetry.endpoint", "telemetry.sample_rate",
		"metrics.textfile",
	}
}

// Get returns the value at key using dot notation.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "auth_scheme":
		return c.AuthScheme, nil
	case "timeout":
		return c.Timeout.String(), nil
	case "session.backend":
		return c.Session.Backend, nil
	case "session.path":
		return c.Session.Path, nil
	case "session.redis_url":
		return c.Session.RedisURL, nil
	case "session.redis_key":
		return c.Session.RedisKey, nil
	case "signup.path":
		return c.Signup.Path, nil
	case "log.level":
		return c.Log.Level, nil
	case "log.format":
		return c.Log.Format, nil
	case "telemetry.enabled":
		return strconv.FormatBool(c.Telemetry.Enabled), nil
	case "telemetry.endpoint":
		return c.Telemetry.Endpoint, nil
	case "telemetry.sample_rate":
		return strconv.FormatFloat(c.Telemetry.SampleRate, 'g', -1, 64), nil
	case "metrics.textfile":
		return c.Metrics.Textfile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set assigns value to key using dot notation. The result is not validated.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = value
	case "auth_scheme":
		c.AuthScheme = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		c.Timeout = d
	case "session.backend":
		c.Session.Backend = value
	case "session.path":
		c.Session.Path = value
	case "session.redis_url":
		c.Session.RedisURL = value
	case "session.redis_key":
		c.Session.RedisKey = value
	case "signup.path":
		c.Signup.Path = value
	case "log.level":
		c.Log.Level = value
	case "log.format":
		c.Log.Format = value
	case "telemetry.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		c.Telemetry.Enabled = b
	case "telemetry.endpoint":
		c.Telemetry.Endpoint = value
	case "telemetry.sample_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %w", key, err)
		}
		c.Telemetry.SampleRate = f
	case "metrics.textfile":
		c.Metrics.Textfile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
