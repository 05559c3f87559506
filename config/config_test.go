package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flintdb.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "debug"
  format: "json"
identity:
  name: "tester"
  email: "tester@example.com"
storage:
  cache: 64
  compressor: "zstd"
s3:
  region: "eu-west-1"
  endpoint: "http://localhost:9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output stderr, got %q", cfg.Logging.Output)
	}
	if cfg.Identity.Name != "tester" || cfg.Identity.Email != "tester@example.com" {
		t.Errorf("Expected tester identity, got %v", cfg.Identity)
	}
	if cfg.Storage.Cache != 64 || cfg.Storage.Compressor != "zstd" {
		t.Errorf("Expected cache 64 and zstd, got %d and %q", cfg.Storage.Cache, cfg.Storage.Compressor)
	}
	if cfg.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("Expected s3 endpoint, got %q", cfg.S3.Endpoint)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.Identity.Name != "flintdb" {
		t.Errorf("Expected default identity, got %v", cfg.Identity)
	}
	if cfg.Storage.Cache != 1024 {
		t.Errorf("Expected default cache 1024, got %d", cfg.Storage.Cache)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/flintdb.yaml"); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLINTDB_IDENTITY_NAME", "ci")
	t.Setenv("FLINTDB_CACHE", "8")
	t.Setenv("FLINTDB_S3_ACCESS_KEY", "key")
	t.Setenv("FLINTDB_S3_SECRET_KEY", "secret")
	t.Setenv("FLINTDB_LOG_OUTPUT", "discard")

	cfg, err := Load(writeConfig(t, "identity:\n  name: file\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Identity.Name != "ci" {
		t.Errorf("Expected env to override identity, got %q", cfg.Identity.Name)
	}
	if cfg.Storage.Cache != 8 {
		t.Errorf("Expected env cache 8, got %d", cfg.Storage.Cache)
	}
	if cfg.Logging.Output != "discard" {
		t.Errorf("Expected env log output, got %q", cfg.Logging.Output)
	}
	if cfg.S3.SecretKey != "secret" {
		t.Errorf("Expected env secret key, got %q", cfg.S3.SecretKey)
	}

	t.Setenv("FLINTDB_CACHE", "lots")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for non-numeric FLINTDB_CACHE")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no identity", func(c *Config) { c.Identity.Name = "" }, "identity.name"},
		{"negative cache", func(c *Config) { c.Storage.Cache = -1 }, "storage.cache"},
		{"bad compressor", func(c *Config) { c.Storage.Compressor = "snappy" }, "storage.compressor"},
		{"half credentials", func(c *Config) { c.S3.AccessKey = "key" }, "s3.access_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}
