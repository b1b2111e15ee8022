// Package config loads engine configuration from a YAML file with
// environment overrides. A missing file is not an error; defaults apply
// and the environment can still override every field.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/internal/planner"
)

// Channel backend names accepted by Config.Channel.
const (
	ChannelMemory = "memory"
	ChannelRedis  = "redis"
)

// Config is the full engine configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Channel  string        `yaml:"channel"`
	Redis    RedisConfig   `yaml:"redis"`
	Session  SessionConfig `yaml:"session"`
	Stream   StreamConfig  `yaml:"stream"`
	Planner  PlannerConfig `yaml:"planner"`
	Tools    ToolsConfig   `yaml:"tools"`
	LogLevel string        `yaml:"logLevel"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SessionConfig bounds session lifetime. TTL is a duration string ("30m").
type SessionConfig struct {
	TTL string `yaml:"ttl"`
}

// StreamConfig tunes the SSE event stream: how many events one drain may
// take, how often an idle stream polls, and how often it emits keep-alive
// comments. Poll and KeepAlive are duration strings.
type StreamConfig struct {
	Batch     int    `yaml:"batch"`
	Poll      string `yaml:"poll"`
	KeepAlive string `yaml:"keepAlive"`
}

// RedisConfig configures the Redis-backed event channel.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PlannerConfig configures the external planning step. Timeout is a
// human-readable duration string ("45s").
type PlannerConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ToolsConfig points at an optional file declaring process-backed tools.
type ToolsConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080},
		Channel: ChannelMemory,
		Redis:   RedisConfig{Address: "localhost:6379"},
		Stream:  StreamConfig{Batch: 64},
	}
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result. A missing file falls back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ARBOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ARBOR_CHANNEL"); v != "" {
		c.Channel = v
	}
	if v := os.Getenv("ARBOR_REDIS_ADDR"); v != "" {
		c.Redis.Address = v
	}
	if v := os.Getenv("ARBOR_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("ARBOR_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("ARBOR_SESSION_TTL"); v != "" {
		c.Session.TTL = v
	}
	if v := os.Getenv("ARBOR_STREAM_BATCH"); v != "" {
		if batch, err := strconv.Atoi(v); err == nil {
			c.Stream.Batch = batch
		}
	}
	if v := os.Getenv("ARBOR_STREAM_POLL"); v != "" {
		c.Stream.Poll = v
	}
	if v := os.Getenv("ARBOR_STREAM_KEEPALIVE"); v != "" {
		c.Stream.KeepAlive = v
	}
	if v := os.Getenv("ARBOR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Planner.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Planner.BaseURL = v
	}
	if v := os.Getenv("ARBOR_MODEL"); v != "" {
		c.Planner.Model = v
	}
	if v := os.Getenv("ARBOR_PLANNER_TIMEOUT"); v != "" {
		c.Planner.Timeout = v
	}
	if v := os.Getenv("ARBOR_TOOLS_PATH"); v != "" {
		c.Tools.Path = v
	}
}

// Validate checks the fields that cannot be fixed up at use sites.
func (c *Config) Validate() error {
	if c.Channel != ChannelMemory && c.Channel != ChannelRedis {
		return fmt.Errorf("unknown channel backend %q (supported: %s, %s)", c.Channel, ChannelMemory, ChannelRedis)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Stream.Batch <= 0 {
		return fmt.Errorf("invalid stream batch %d", c.Stream.Batch)
	}
	for _, d := range []struct{ name, value string }{
		{"session ttl", c.Session.TTL},
		{"stream poll", c.Stream.Poll},
		{"stream keepAlive", c.Stream.KeepAlive},
		{"planner timeout", c.Planner.Timeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
	}
	return nil
}

// SessionTTL returns the parsed session lifetime, zero when unset so the
// channel adapters fall back to their own defaults.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

// StreamPoll returns the parsed idle poll interval, zero when unset.
func (c *Config) StreamPoll() time.Duration {
	d, _ := time.ParseDuration(c.Stream.Poll)
	return d
}

// StreamKeepAlive returns the parsed keep-alive period, zero when unset.
func (c *Config) StreamKeepAlive() time.Duration {
	d, _ := time.ParseDuration(c.Stream.KeepAlive)
	return d
}

// PlannerTimeout returns the parsed planner timeout, falling back to the
// planner default when unset.
func (c *Config) PlannerTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Planner.Timeout); err == nil && d > 0 {
		return d
	}
	return planner.DefaultTimeout
}
