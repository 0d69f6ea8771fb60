package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level mirrornode configuration.
type Config struct {
	Version     string        `yaml:"version"`
	Environment string        `yaml:"environment"`
	CanonRoot   string        `yaml:"canon_root"`
	Server      ServerConfig  `yaml:"server"`
	Bridge      BridgeConfig  `yaml:"bridge,omitempty"`
	Events      EventsConfig  `yaml:"events,omitempty"`
	Index       IndexConfig   `yaml:"index,omitempty"`
	Tracing     TracingConfig `yaml:"tracing,omitempty"`
}

// ServerConfig holds gateway server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"` // Address to bind (default: 127.0.0.1)
	LogLevel string `yaml:"log_level"`
}

// BridgeConfig points the processor at an external event store.
// An empty URL disables forwarding.
type BridgeConfig struct {
	URL      string `yaml:"url,omitempty"`
	TimeoutS int    `yaml:"timeout_s,omitempty"`
}

// EventsConfig controls the recent-event store behind /events/recent.
// An empty RedisURL selects the in-memory store.
type EventsConfig struct {
	RecentLimit int    `yaml:"recent_limit"`
	RedisURL    string `yaml:"redis_url,omitempty"`
}

// IndexConfig configures the queryable ledger index. Driver is sqlite
// (default), postgres, or off. The index is a query accelerator only; the
// NDJSON dossier files remain the ledger of record.
type IndexConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"` // sqlite file, default <canon_root>/index.db
	DSN    string `yaml:"dsn,omitempty"`  // postgres connection string
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter,omitempty"` // stdout or noop
}

// Load reads and parses a mirrornode config file. Values absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Apply zero-value defaults after unmarshal
	if cfg.Events.RecentLimit == 0 {
		cfg.Events.RecentLimit = 100
	}
	if cfg.Index.Driver == "" {
		cfg.Index.Driver = "sqlite"
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults. The canon root honors
// the CANON_ROOT environment variable once, here; nothing downstream
// consults the environment again.
func Defaults() *Config {
	return &Config{
		Version:     "1",
		Environment: "development",
		CanonRoot:   defaultCanonRoot(),
		Server: ServerConfig{
			Port:     8420,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Bridge:  BridgeConfig{TimeoutS: 30},
		Events:  EventsConfig{RecentLimit: 100},
		Index:   IndexConfig{Driver: "sqlite"},
		Tracing: TracingConfig{Exporter: "stdout"},
	}
}

// Validate checks the config for invalid combinations.
func (c *Config) Validate() error {
	if c.CanonRoot == "" {
		return fmt.Errorf("canon_root must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q not one of debug, info, warn, error", c.Server.LogLevel)
	}
	switch c.Index.Driver {
	case "", "off", "sqlite":
	case "postgres":
		if c.Index.DSN == "" {
			return fmt.Errorf("index.dsn required when index.driver is postgres")
		}
	default:
		return fmt.Errorf("index.driver %q not one of sqlite, postgres, off", c.Index.Driver)
	}
	if c.Events.RecentLimit < 0 {
		return fmt.Errorf("events.recent_limit must not be negative")
	}
	return nil
}

// IndexPath returns the sqlite index location, defaulting under the canon root.
func (c *Config) IndexPath() string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(c.CanonRoot, "index.db")
}

func defaultCanonRoot() string {
	if root := os.Getenv("CANON_ROOT"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "canon")
	}
	return filepath.Join(home, "mirrornode", "canon")
}
