package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nickyhof/flintdb/core"
	"gopkg.in/yaml.v3"
)

// Config is the complete FlintDB configuration.
type Config struct {
	Logging  LoggingConfig `yaml:"logging"`
	Identity core.Identity `yaml:"identity"`
	Storage  StorageConfig `yaml:"storage"`
	S3       S3Config      `yaml:"s3"`
}

// LoggingConfig selects the log level, encoding and destination. Output
// is stderr, stdout, discard or a file path.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StorageConfig holds table defaults applied when a descriptor leaves the
// option unset.
type StorageConfig struct {
	Cache      int    `yaml:"cache"`
	Compressor string `yaml:"compressor"`
}

// S3Config configures s3:// generic files. Empty credentials fall back to
// the AWS default chain.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads path over the defaults and applies environment overrides. An
// empty path yields the defaults with overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Identity: core.DefaultIdentity,
		Storage: StorageConfig{
			Cache: 1024,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	// Logging
	if v := os.Getenv("FLINTDB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLINTDB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FLINTDB_LOG_OUTPUT"); v != "" {
		cfg.Logging.Output = v
	}

	// Identity
	if v := os.Getenv("FLINTDB_IDENTITY_NAME"); v != "" {
		cfg.Identity.Name = v
	}
	if v := os.Getenv("FLINTDB_IDENTITY_EMAIL"); v != "" {
		cfg.Identity.Email = v
	}

	// Storage
	if v := os.Getenv("FLINTDB_CACHE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FLINTDB_CACHE %q: %w", v, err)
		}
		cfg.Storage.Cache = n
	}
	if v := os.Getenv("FLINTDB_COMPRESSOR"); v != "" {
		cfg.Storage.Compressor = v
	}

	// S3
	if v := os.Getenv("FLINTDB_S3_REGION"); v != "" {
		cfg.S3.Region = v
	}
	if v := os.Getenv("FLINTDB_S3_ENDPOINT"); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := os.Getenv("FLINTDB_S3_ACCESS_KEY"); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := os.Getenv("FLINTDB_S3_SECRET_KEY"); v != "" {
		cfg.S3.SecretKey = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}

	if c.Identity.Name == "" {
		errs = append(errs, "identity.name is required")
	}

	if c.Storage.Cache < 0 {
		errs = append(errs, "storage.cache must not be negative")
	}
	switch strings.ToLower(c.Storage.Compressor) {
	case "", "none", "zstd", "lz4":
	default:
		errs = append(errs, "storage.compressor must be none, zstd or lz4")
	}

	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		errs = append(errs, "s3.access_key and s3.secret_key must be set together")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
