// Package config loads and validates the server configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values exported for documentation and validation
const (
	DefaultTransport       = "stdio"
	DefaultHTTPAddr        = "127.0.0.1:3000"
	DefaultLogLevel        = "info"
	DefaultMaxInstances    = 20
	DefaultInstanceTimeout = 30 * time.Minute
	DefaultCleanupInterval = 60 * time.Second
	DefaultSessionsDir     = "sessions"
	DefaultReplayDelay     = 100 * time.Millisecond
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Pool      PoolConfig      `yaml:"pool"`
	Recording RecordingConfig `yaml:"recording"`
	Replay    ReplayConfig    `yaml:"replay"`
}

// ServerConfig controls the serving transport.
type ServerConfig struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`
	// HTTPAddr is the listen address in http mode.
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`
}

// BrowserConfig holds per-instance launch defaults.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	UserAgent      string `yaml:"user_agent"`
	Proxy          string `yaml:"proxy"`
}

// PoolConfig bounds the instance pool.
type PoolConfig struct {
	MaxInstances    int           `yaml:"max_instances"`
	InstanceTimeout time.Duration `yaml:"instance_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RecordingConfig controls session capture.
type RecordingConfig struct {
	Enabled bool `yaml:"enabled"`
	// AutoSave rewrites the session file after every recorded action.
	AutoSave bool `yaml:"auto_save"`
	// CaptureFullPageData stores data-bearing tool results verbatim
	// instead of truncating large payloads.
	CaptureFullPageData bool   `yaml:"capture_full_page_data"`
	SessionsDir         string `yaml:"sessions_dir"`
}

// ReplayConfig tunes session replay.
type ReplayConfig struct {
	Delay       time.Duration `yaml:"delay"`
	StopOnError bool          `yaml:"stop_on_error"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: DefaultTransport,
			HTTPAddr:  DefaultHTTPAddr,
			LogLevel:  DefaultLogLevel,
		},
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Pool: PoolConfig{
			MaxInstances:    DefaultMaxInstances,
			InstanceTimeout: DefaultInstanceTimeout,
			CleanupInterval: DefaultCleanupInterval,
		},
		Recording: RecordingConfig{
			Enabled:     true,
			AutoSave:    true,
			SessionsDir: DefaultSessionsDir,
		},
		Replay: ReplayConfig{
			Delay: DefaultReplayDelay,
		},
	}
}

// Load reads a YAML config file and merges it over the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		applyEnvOverrides(cfg)
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BROWSER_MCP_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("BROWSER_MCP_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("BROWSER_MCP_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("BROWSER_MCP_SESSIONS_DIR"); v != "" {
		cfg.Recording.SessionsDir = v
	}
	if v, ok := envBool("BROWSER_MCP_HEADLESS"); ok {
		cfg.Browser.Headless = v
	}
	if v, ok := envBool("BROWSER_MCP_RECORDING"); ok {
		cfg.Recording.Enabled = v
	}
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Validate checks for configurations that cannot work.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", c.Server.Transport)
	}
	if c.Server.Transport == "http" && c.Server.HTTPAddr == "" {
		return fmt.Errorf("http transport requires http_addr")
	}
	if c.Pool.MaxInstances < 1 {
		return fmt.Errorf("max_instances must be at least 1, got %d", c.Pool.MaxInstances)
	}
	if c.Browser.ViewportWidth < 1 || c.Browser.ViewportHeight < 1 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Recording.Enabled && c.Recording.SessionsDir == "" {
		return fmt.Errorf("recording requires sessions_dir")
	}
	if c.Replay.Delay < 0 {
		return fmt.Errorf("replay delay cannot be negative")
	}
	return nil
}
