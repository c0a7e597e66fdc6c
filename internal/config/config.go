// Package config loads server configuration: defaults, then an
// optional TOML file, then environment variables (a .env file is
// honored when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

type ServerConfig struct {
	Host string `toml:"host" env:"CRAFTD_HOST"`
	Port int    `toml:"port" env:"CRAFTD_PORT"`

	// SendQueue is the per-session outbound queue capacity, in frames.
	// A session that falls this far behind is disconnected.
	SendQueue int `toml:"send_queue" env:"CRAFTD_SEND_QUEUE"`
}

type StoreConfig struct {
	Path string `toml:"path" env:"CRAFTD_DB"`

	// CommitIntervalSeconds is how long edits may sit in the pending
	// transaction before the model loop commits them.
	CommitIntervalSeconds int `toml:"commit_interval" env:"CRAFTD_COMMIT_INTERVAL"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"CRAFTD_LOG_LEVEL"`
	Format string `toml:"format" env:"CRAFTD_LOG_FORMAT"`
}

type MetricsConfig struct {
	// Addr is the Prometheus listen address; empty disables metrics.
	Addr string `toml:"addr" env:"CRAFTD_METRICS_ADDR"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      4080,
			SendQueue: 4096,
		},
		Store: StoreConfig{
			Path:                  "craft.db",
			CommitIntervalSeconds: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the config from the default path, or returns defaults
// plus environment overrides when no file exists.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return applyEnv(Default())
	}
	return LoadFrom(path)
}

// LoadFrom layers the TOML file at path and the environment on top of
// the defaults. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	return applyEnv(cfg)
}

func applyEnv(cfg *Config) (*Config, error) {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Server.Port)
	}
	if c.Server.SendQueue < 1 {
		return fmt.Errorf("config: send_queue must be positive, got %d", c.Server.SendQueue)
	}
	if c.Store.CommitIntervalSeconds < 1 {
		return fmt.Errorf("config: commit_interval must be positive, got %d", c.Store.CommitIntervalSeconds)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "craftd", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "craftd", "config.toml"), nil
}
