package config

import (
	"io"
	"log/slog"

	"github.com/jpalmerr/relayboard"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The logger is passed through as-is; see [Config.NewLogger] for building one
// from the configured level and format.
func BuildOptions(cfg *Config, logger *slog.Logger) []relayboard.Option {
	opts := []relayboard.Option{
		relayboard.WithPort(cfg.Port),
		relayboard.WithCoordinateLimit(cfg.History.CoordinateLimit),
		relayboard.WithImageLimit(cfg.History.ImageLimit),
		relayboard.WithBannerLimit(cfg.History.BannerLimit),
		relayboard.WithSSE(cfg.Push.SSE),
		relayboard.WithWebSocket(cfg.Push.WebSocket),
		relayboard.WithSubscriberBuffer(cfg.Push.BufferSize),
		relayboard.WithPingInterval(cfg.Push.PingInterval.Duration()),
		relayboard.WithAllowedOrigin(cfg.HTTP.AllowedOrigin),
		relayboard.WithMetrics(cfg.Metrics.Enabled),
	}

	if cfg.Title != "" {
		opts = append(opts, relayboard.WithTitle(cfg.Title))
	}
	if cfg.HTTP.StaticDir != "" {
		opts = append(opts, relayboard.WithStaticDir(cfg.HTTP.StaticDir))
	}
	if cfg.HTTP.WriteRateLimit > 0 {
		opts = append(opts, relayboard.WithWriteRateLimit(cfg.HTTP.WriteRateLimit, cfg.HTTP.WriteBurst))
	}
	if logger != nil {
		opts = append(opts, relayboard.WithLogger(logger))
	}

	return opts
}

// NewLogger builds a logger writing to w in the configured format and level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}
