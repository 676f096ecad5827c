// Package config provides YAML configuration parsing for RelayBoard.
//
// This package enables running RelayBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Course Relay
//	port: 3000
//	log_level: info
//
//	history:
//	  coordinate_limit: 100
//	  image_limit: 0
//
//	push:
//	  sse: true
//	  websocket: true
//	  ping_interval: 30s
//
//	http:
//	  static_dir: ${STATIC_DIR:-}
//	  allowed_origin: "*"
//	  write_rate_limit: 50
//	  write_burst: 100
//
// Every section is optional. An empty file yields a working relay on $PORT
// (or 3000).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is used when neither the file nor $PORT sets a port.
	DefaultPort = 3000

	// minPingInterval keeps keepalive traffic reasonable.
	minPingInterval = 1 * time.Second
)

// Config is the root configuration structure for RelayBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the viewer title. Defaults to "RelayBoard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Falls back to $PORT, then 3000.
	Port int `yaml:"port"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// LogFormat is json or text. Defaults to json.
	LogFormat string `yaml:"log_format"`

	History HistoryConfig `yaml:"history"`
	Push    PushConfig    `yaml:"push"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HistoryConfig bounds the retained history.
type HistoryConfig struct {
	// CoordinateLimit is the number of coordinate records kept. Defaults to 100.
	CoordinateLimit int `yaml:"coordinate_limit"`

	// ImageLimit bounds the image history. 0 means unbounded.
	ImageLimit int `yaml:"image_limit"`

	// BannerLimit bounds the banner history. 0 means unbounded.
	BannerLimit int `yaml:"banner_limit"`
}

// PushConfig controls the push transports.
type PushConfig struct {
	// SSE enables /api/events. Defaults to true.
	SSE bool `yaml:"sse"`

	// WebSocket enables /ws. Defaults to true.
	WebSocket bool `yaml:"websocket"`

	// BufferSize is the per-client event queue length. Defaults to 64.
	BufferSize int `yaml:"buffer_size"`

	// PingInterval is the WebSocket keepalive interval. Defaults to 30s.
	PingInterval Duration `yaml:"ping_interval"`
}

// HTTPConfig controls the HTTP surface.
type HTTPConfig struct {
	// StaticDir, when set, is served at "/" instead of the embedded viewer.
	// Supports environment variable substitution.
	StaticDir string `yaml:"static_dir"`

	// AllowedOrigin is the CORS origin. Defaults to "*".
	// Supports environment variable substitution.
	AllowedOrigin string `yaml:"allowed_origin"`

	// WriteRateLimit is the sustained POST/DELETE rate per second. 0 disables.
	WriteRateLimit float64 `yaml:"write_rate_limit"`

	// WriteBurst is the token bucket size. Defaults to 20.
	WriteBurst int `yaml:"write_burst"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled serves /metrics. Defaults to true.
	Enabled bool `yaml:"enabled"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a Config with every default applied except the port, which
// is resolved during [Parse].
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		History: HistoryConfig{
			CoordinateLimit: 100,
		},
		Push: PushConfig{
			SSE:          true,
			WebSocket:    true,
			BufferSize:   64,
			PingInterval: Duration(30 * time.Second),
		},
		HTTP: HTTPConfig{
			AllowedOrigin: "*",
			WriteBurst:    20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data on top of [Default].
//
// Environment variables are expanded in Title, StaticDir and AllowedOrigin.
// A missing port is taken from $PORT, then [DefaultPort]. Empty data is
// valid and yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		port, err := portFromEnv()
		if err != nil {
			return nil, err
		}
		cfg.Port = port
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// portFromEnv reads $PORT, falling back to DefaultPort when unset or empty.
func portFromEnv() (int, error) {
	raw := strings.TrimSpace(os.Getenv("PORT"))
	if raw == "" {
		return DefaultPort, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("PORT environment variable %q is not a number", raw)
	}
	return port, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"title", &c.Title},
		{"http.static_dir", &c.HTTP.StaticDir},
		{"http.allowed_origin", &c.HTTP.AllowedOrigin},
	} {
		expanded, err := expandEnvVars(*field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}

	if c.History.CoordinateLimit < 1 {
		return fmt.Errorf("history.coordinate_limit must be at least 1, got %d", c.History.CoordinateLimit)
	}
	if c.History.ImageLimit < 0 {
		return fmt.Errorf("history.image_limit cannot be negative, got %d", c.History.ImageLimit)
	}
	if c.History.BannerLimit < 0 {
		return fmt.Errorf("history.banner_limit cannot be negative, got %d", c.History.BannerLimit)
	}

	if c.Push.BufferSize < 1 {
		return fmt.Errorf("push.buffer_size must be at least 1, got %d", c.Push.BufferSize)
	}
	if c.Push.PingInterval.Duration() < minPingInterval {
		return fmt.Errorf("push.ping_interval must be at least %s, got %s", minPingInterval, c.Push.PingInterval.Duration())
	}

	if c.HTTP.AllowedOrigin == "" {
		return fmt.Errorf("http.allowed_origin cannot be empty")
	}
	if c.HTTP.WriteRateLimit < 0 {
		return fmt.Errorf("http.write_rate_limit cannot be negative, got %v", c.HTTP.WriteRateLimit)
	}
	if c.HTTP.WriteRateLimit > 0 && c.HTTP.WriteBurst < 1 {
		return fmt.Errorf("http.write_burst must be at least 1 when write_rate_limit is set, got %d", c.HTTP.WriteBurst)
	}
	if c.HTTP.StaticDir != "" {
		info, err := os.Stat(c.HTTP.StaticDir)
		if err != nil {
			return fmt.Errorf("http.static_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("http.static_dir %q is not a directory", c.HTTP.StaticDir)
		}
	}

	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
}
