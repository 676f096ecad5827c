package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jpalmerr/relayboard"
)

func TestBuildOptions_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts := BuildOptions(cfg, nil)

	rb, err := relayboard.New(opts...)
	if err != nil {
		t.Fatalf("relayboard.New() error = %v", err)
	}
	if rb.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", rb.Port(), DefaultPort)
	}
	if rb.CoordinateLimit() != 100 {
		t.Errorf("CoordinateLimit() = %d, want 100", rb.CoordinateLimit())
	}
}

func TestBuildOptions_AppliesConfig(t *testing.T) {
	cfg := Default()
	cfg.Port = 9191
	cfg.Title = "Course Relay"
	cfg.History.CoordinateLimit = 7
	cfg.HTTP.WriteRateLimit = 10
	cfg.HTTP.WriteBurst = 5

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)

	rb, err := relayboard.New(BuildOptions(cfg, logger)...)
	if err != nil {
		t.Fatalf("relayboard.New() error = %v", err)
	}
	if rb.Port() != 9191 {
		t.Errorf("Port() = %d, want 9191", rb.Port())
	}
	if rb.CoordinateLimit() != 7 {
		t.Errorf("CoordinateLimit() = %d, want 7", rb.CoordinateLimit())
	}
}

func TestBuildOptions_OptionalFields(t *testing.T) {
	cfg := Default()
	cfg.Port = 3000

	base := len(BuildOptions(cfg, nil))

	cfg.Title = "Relay"
	cfg.HTTP.StaticDir = t.TempDir()
	cfg.HTTP.WriteRateLimit = 1
	withOptional := len(BuildOptions(cfg, nil))

	if withOptional != base+3 {
		t.Errorf("options with title, static dir and rate limit = %d, want %d", withOptional, base+3)
	}
}

func TestBuildOptions_InvalidValuesSurfaceFromNew(t *testing.T) {
	cfg := Default()
	cfg.Port = 0 // not resolved through Parse

	if _, err := relayboard.New(BuildOptions(cfg, nil)...); err == nil {
		t.Error("relayboard.New() expected error for port 0, got nil")
	}
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		level    string
		wantLike string
	}{
		{"json", "json", "info", `"msg":"hello"`},
		{"text", "text", "info", "msg=hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LogFormat = tt.format
			cfg.LogLevel = tt.level

			var buf bytes.Buffer
			logger := cfg.NewLogger(&buf)
			logger.Debug("hidden")
			logger.Info("hello")

			out := buf.String()
			if !strings.Contains(out, tt.wantLike) {
				t.Errorf("output = %q, want to contain %q", out, tt.wantLike)
			}
			if strings.Contains(out, "hidden") {
				t.Error("debug line should be filtered at info level")
			}
		})
	}
}
