package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty server address",
			mutate: func(c *Config) { c.Server.Address = "" },
		},
		{
			name:   "empty backend base url",
			mutate: func(c *Config) { c.Backend.BaseURL = "" },
		},
		{
			name:   "non-positive request timeout",
			mutate: func(c *Config) { c.Backend.RequestTimeout = 0 },
		},
		{
			name:   "websocket enabled without url",
			mutate: func(c *Config) { c.WebSocket.URL = "" },
		},
		{
			name:   "non-positive ping interval",
			mutate: func(c *Config) { c.WebSocket.PingInterval = 0 },
		},
		{
			name:   "channels max delay below base delay",
			mutate: func(c *Config) { c.Channels.ReconnectMaxDelay = 500 * time.Millisecond },
		},
		{
			name:   "polling enabled without interval",
			mutate: func(c *Config) { c.Polling.Interval = 0 },
		},
		{
			name:   "empty log level",
			mutate: func(c *Config) { c.Logging.Level = "" },
		},
		{
			name: "redis enabled without address",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Address = ""
			},
		},
		{
			name: "rate limiting enabled with zero rps",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.HTTP.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_DisabledSectionsAllowZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WebSocket.Enabled = false
	cfg.WebSocket.URL = ""
	cfg.WebSocket.PingInterval = 0
	cfg.Channels.Enabled = false
	cfg.Channels.HeartbeatInterval = 0
	cfg.Polling.Enabled = false
	cfg.Polling.Interval = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled sections to skip validation, got: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got error: %v", err)
	}
	if cfg.Polling.Interval != 30*time.Second {
		t.Errorf("expected default polling interval 30s, got %v", cfg.Polling.Interval)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
backend:
  base_url: "http://api.example.test"
polling:
  enabled: true
  interval: 10s
websocket:
  enabled: true
  url: "ws://api.example.test/ws/metrics"
  ping_interval: 15s
  reconnect_step: 3s
  max_reconnects: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://api.example.test" {
		t.Errorf("expected overridden base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Polling.Interval != 10*time.Second {
		t.Errorf("expected 10s polling interval, got %v", cfg.Polling.Interval)
	}
	if cfg.WebSocket.PingInterval != 15*time.Second {
		t.Errorf("expected 15s ping interval, got %v", cfg.WebSocket.PingInterval)
	}
	// Untouched sections keep defaults.
	if cfg.Channels.MaxReconnectAttempts != 5 {
		t.Errorf("expected default max reconnect attempts 5, got %d", cfg.Channels.MaxReconnectAttempts)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SHOPFLOW_BACKEND_URL", "http://override.example.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://override.example.test" {
		t.Errorf("expected env override, got %s", cfg.Backend.BaseURL)
	}
}
