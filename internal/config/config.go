package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "outreach.yaml"

// Config holds all outreach configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Control ControlConfig `yaml:"control"`
	Store   StoreConfig   `yaml:"store"`
	Engine  EngineConfig  `yaml:"engine"`
	Adapter AdapterConfig `yaml:"adapter"`
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig configures the Chrome session.
type BrowserConfig struct {
	DebuggerURL       string   `yaml:"debugger_url"` // attach to a running Chrome
	Launch            []string `yaml:"launch"`       // or launch this binary (+ flags)
	Headless          bool     `yaml:"headless"`
	ViewportWidth     int      `yaml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height"`
	NavigationTimeout string   `yaml:"navigation_timeout"`
}

// ControlConfig configures the loopback control plane.
type ControlConfig struct {
	Listen        string `yaml:"listen"`
	ClientTimeout string `yaml:"client_timeout"`
}

// StoreConfig selects and configures the KV/log backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // sqlite, redis
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	LogCap        int    `yaml:"log_cap"`
}

// EngineConfig configures run pacing.
type EngineConfig struct {
	InviteDelay     string `yaml:"invite_delay"`
	PageDelay       string `yaml:"page_delay"`
	SimulateInvites bool   `yaml:"simulate_invites"`
	TargetPrefix    string `yaml:"target_prefix"`
}

// AdapterConfig configures page adapter polling.
type AdapterConfig struct {
	WaitTimeout   string `yaml:"wait_timeout"`
	PromptTimeout string `yaml:"prompt_timeout"`
	PollInterval  string `yaml:"poll_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			ViewportWidth:     1440,
			ViewportHeight:    900,
			NavigationTimeout: "30s",
		},
		Control: ControlConfig{
			Listen:        "127.0.0.1:7411",
			ClientTimeout: "30s",
		},
		Store: StoreConfig{
			Backend:     "sqlite",
			Path:        "data/outreach.db",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "outreach:",
			LogCap:      200,
		},
		Engine: EngineConfig{
			InviteDelay:     "3.5s",
			PageDelay:       "3.5s",
			SimulateInvites: true,
			TargetPrefix:    "https://www.linkedin.com/search/results/people",
		},
		Adapter: AdapterConfig{
			WaitTimeout:   "6s",
			PromptTimeout: "6s",
			PollInterval:  "100ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Dir:    "logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OUTREACH_DEBUGGER_URL"); v != "" {
		c.Browser.DebuggerURL = v
	}
	if v := os.Getenv("OUTREACH_LISTEN"); v != "" {
		c.Control.Listen = v
	}
	if v := os.Getenv("OUTREACH_STORE"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("OUTREACH_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("OUTREACH_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("OUTREACH_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.RedisDB = n
		}
	}
	if v := os.Getenv("OUTREACH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 30*time.Second)
}

// GetClientTimeout returns the control client request timeout.
func (c *Config) GetClientTimeout() time.Duration {
	return parseDuration(c.Control.ClientTimeout, 30*time.Second)
}

// GetInviteDelay returns the pause after each successful invitation.
func (c *Config) GetInviteDelay() time.Duration {
	return parseDuration(c.Engine.InviteDelay, 3500*time.Millisecond)
}

// GetPageDelay returns the pause after advancing to the next results page.
func (c *Config) GetPageDelay() time.Duration {
	return parseDuration(c.Engine.PageDelay, 3500*time.Millisecond)
}

// GetWaitTimeout returns how long the adapter waits for a modal or button.
func (c *Config) GetWaitTimeout() time.Duration {
	return parseDuration(c.Adapter.WaitTimeout, 6*time.Second)
}

// GetPromptTimeout returns how long the adapter looks for a follow-up prompt.
func (c *Config) GetPromptTimeout() time.Duration {
	return parseDuration(c.Adapter.PromptTimeout, 6*time.Second)
}

// GetPollInterval returns the adapter's DOM polling interval.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Adapter.PollInterval, 100*time.Millisecond)
}

// ValidBackends lists the supported store backends.
var ValidBackends = []string{"sqlite", "redis"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path required for sqlite backend")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr required for redis backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}
	if c.Store.LogCap < 1 {
		return fmt.Errorf("store.log_cap must be at least 1")
	}
	if c.Control.Listen == "" {
		return fmt.Errorf("control.listen required")
	}
	if !strings.HasPrefix(c.Engine.TargetPrefix, "https://") {
		return fmt.Errorf("engine.target_prefix must be an https URL: %q", c.Engine.TargetPrefix)
	}
	return nil
}
