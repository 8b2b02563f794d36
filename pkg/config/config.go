package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Backend struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		RetryAttempts  int           `yaml:"retry_attempts"`
		EntityCacheTTL time.Duration `yaml:"entity_cache_ttl"`
	} `yaml:"backend"`

	WebSocket struct {
		Enabled          bool          `yaml:"enabled"`
		URL              string        `yaml:"url"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		ReconnectStep    time.Duration `yaml:"reconnect_step"`
		MaxReconnects    int           `yaml:"max_reconnects"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	} `yaml:"websocket"`

	Channels struct {
		Enabled              bool          `yaml:"enabled"`
		HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
		ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
		ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
		SettleDelay          time.Duration `yaml:"settle_delay"`
	} `yaml:"channels"`

	Polling struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"polling"`

	Stream struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"stream"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Backend
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must not be empty")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be > 0")
	}
	if c.Backend.RetryAttempts < 0 {
		return fmt.Errorf("backend.retry_attempts must be >= 0")
	}
	if c.Backend.EntityCacheTTL <= 0 {
		return fmt.Errorf("backend.entity_cache_ttl must be > 0")
	}

	// WebSocket
	if c.WebSocket.Enabled {
		if c.WebSocket.URL == "" {
			return fmt.Errorf("websocket.url must not be empty when websocket.enabled=true")
		}
		if c.WebSocket.PingInterval <= 0 {
			return fmt.Errorf("websocket.ping_interval must be > 0")
		}
		if c.WebSocket.ReconnectStep <= 0 {
			return fmt.Errorf("websocket.reconnect_step must be > 0")
		}
		if c.WebSocket.MaxReconnects < 0 {
			return fmt.Errorf("websocket.max_reconnects must be >= 0")
		}
	}

	// Channels
	if c.Channels.Enabled {
		if c.Channels.HeartbeatInterval <= 0 {
			return fmt.Errorf("channels.heartbeat_interval must be > 0")
		}
		if c.Channels.ReconnectBaseDelay <= 0 {
			return fmt.Errorf("channels.reconnect_base_delay must be > 0")
		}
		if c.Channels.ReconnectMaxDelay < c.Channels.ReconnectBaseDelay {
			return fmt.Errorf("channels.reconnect_max_delay must be >= reconnect_base_delay")
		}
		if c.Channels.MaxReconnectAttempts < 0 {
			return fmt.Errorf("channels.max_reconnect_attempts must be >= 0")
		}
	}

	// Polling
	if c.Polling.Enabled && c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be > 0 when polling.enabled=true")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Backend.BaseURL = "http://localhost:3000"
	cfg.Backend.RequestTimeout = 10 * time.Second
	cfg.Backend.RetryAttempts = 2
	cfg.Backend.EntityCacheTTL = 5 * time.Minute

	cfg.WebSocket.Enabled = true
	cfg.WebSocket.URL = "ws://localhost:3000/ws/metrics"
	cfg.WebSocket.PingInterval = 30 * time.Second
	cfg.WebSocket.ReconnectStep = 3 * time.Second
	cfg.WebSocket.MaxReconnects = 10
	cfg.WebSocket.HandshakeTimeout = 10 * time.Second

	cfg.Channels.Enabled = true
	cfg.Channels.HeartbeatInterval = 30 * time.Second
	cfg.Channels.ReconnectBaseDelay = 1 * time.Second
	cfg.Channels.ReconnectMaxDelay = 30 * time.Second
	cfg.Channels.MaxReconnectAttempts = 5
	cfg.Channels.SettleDelay = 1 * time.Second

	cfg.Polling.Enabled = true
	cfg.Polling.Interval = 30 * time.Second

	cfg.Stream.Enabled = false
	cfg.Stream.Path = "/api/analytics/stream"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "shopflow"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SHOPFLOW_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if url := os.Getenv("SHOPFLOW_BACKEND_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if url := os.Getenv("SHOPFLOW_WS_URL"); url != "" {
		c.WebSocket.URL = url
	}
	if level := os.Getenv("SHOPFLOW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("SHOPFLOW_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}
