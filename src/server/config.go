package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAddress         = ":9000"
	DefaultReadBufferSize  = 1024
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config controls one nFTP server instance. Root is required; everything else
// has a usable default from DefaultConfig.
type Config struct {
	Address         string        // TCP listen address
	Root            string        // directory served to clients
	ConfineToRoot   bool          // reject paths resolving outside Root
	ReadBufferSize  int           // receive buffer, larger requests fail as truncated
	MaxConnections  int           // concurrent connection cap, 0 = unlimited
	RequestTimeout  time.Duration // read+decode+execute budget, 0 = none
	WriteTimeout    time.Duration // idle limit per response write and per error-frame attempt
	ShutdownTimeout time.Duration // wait for in-flight connections before forcing them closed
	MetricsAddress  string        // admin HTTP listener for /metrics and /health, empty = off
	Retry           RetryConfig
}

// DefaultConfig returns a Config serving root with the 1024-byte receive
// buffer and the 4s..1024s error-frame retry schedule.
func DefaultConfig(root string) Config {
	return Config{
		Address:         DefaultAddress,
		Root:            root,
		ConfineToRoot:   true,
		ReadBufferSize:  DefaultReadBufferSize,
		MaxConnections:  256,
		RequestTimeout:  60 * time.Second,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		Retry:           DefaultRetryConfig(),
	}
}

// Validate checks the fields New depends on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return fmt.Errorf("config: root is required")
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("config: read_buffer_size must be > 0")
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("config: max_connections must be >= 0")
	}
	if c.Retry.Attempts < 0 {
		return fmt.Errorf("config: retry.attempts must be >= 0")
	}
	return nil
}

type fileConfig struct {
	Address         string          `toml:"address"`
	Root            string          `toml:"root"`
	ConfineToRoot   bool            `toml:"confine_to_root"`
	ReadBufferSize  int             `toml:"read_buffer_size"`
	MaxConnections  int             `toml:"max_connections"`
	RequestTimeout  string          `toml:"request_timeout"`
	WriteTimeout    string          `toml:"write_timeout"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	MetricsAddress  string          `toml:"metrics_address"`
	Retry           retryFileConfig `toml:"retry"`
}

type retryFileConfig struct {
	Attempts     int     `toml:"attempts"`
	InitialDelay string  `toml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxDelay     string  `toml:"max_delay"`
}

// LoadConfig applies the keys present in the TOML file at path on top of
// base. Keys missing from the file keep their base value.
func LoadConfig(path string, base Config) (Config, error) {
	cfg := base

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load server config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load server config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("root") {
		cfg.Root = strings.TrimSpace(raw.Root)
	}
	if meta.IsDefined("confine_to_root") {
		cfg.ConfineToRoot = raw.ConfineToRoot
	}
	if meta.IsDefined("read_buffer_size") {
		cfg.ReadBufferSize = raw.ReadBufferSize
	}
	if meta.IsDefined("max_connections") {
		cfg.MaxConnections = raw.MaxConnections
	}
	if meta.IsDefined("metrics_address") {
		cfg.MetricsAddress = strings.TrimSpace(raw.MetricsAddress)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
		{"shutdown_timeout", raw.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"retry.initial_delay", raw.Retry.InitialDelay, &cfg.Retry.Backoff.InitialDelay},
		{"retry.max_delay", raw.Retry.MaxDelay, &cfg.Retry.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("retry", "attempts") {
		cfg.Retry.Attempts = raw.Retry.Attempts
	}
	if meta.IsDefined("retry", "multiplier") {
		cfg.Retry.Backoff.Multiplier = raw.Retry.Multiplier
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
