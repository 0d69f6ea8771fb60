package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirrornode.yaml")
	data := `version: "1"
environment: test
canon_root: /tmp/canon
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "test" {
		t.Errorf("Environment = %q, want test", cfg.Environment)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("Server.LogLevel = %q, want info (default)", cfg.Server.LogLevel)
	}
	if cfg.Events.RecentLimit != 100 {
		t.Errorf("Events.RecentLimit = %d, want 100 (default)", cfg.Events.RecentLimit)
	}
	if cfg.Index.Driver != "sqlite" {
		t.Errorf("Index.Driver = %q, want sqlite (default)", cfg.Index.Driver)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty root", func(c *Config) { c.CanonRoot = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "verbose" }, true},
		{"postgres without dsn", func(c *Config) { c.Index.Driver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Index.Driver = "postgres"
			c.Index.DSN = "postgres://localhost/canon"
		}, false},
		{"unknown index driver", func(c *Config) { c.Index.Driver = "mysql" }, true},
		{"negative recent limit", func(c *Config) { c.Events.RecentLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndexPathDefaultsUnderRoot(t *testing.T) {
	cfg := Defaults()
	cfg.CanonRoot = "/var/canon"
	if got := cfg.IndexPath(); got != filepath.Join("/var/canon", "index.db") {
		t.Errorf("IndexPath() = %q", got)
	}
	cfg.Index.Path = "/elsewhere/ledger.db"
	if got := cfg.IndexPath(); got != "/elsewhere/ledger.db" {
		t.Errorf("IndexPath() override = %q", got)
	}
}
