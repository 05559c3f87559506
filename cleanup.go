package flintdb

import (
	"log/slog"

	"github.com/nickyhof/flintdb/config"
	"github.com/nickyhof/flintdb/native"
)

// Configure applies cfg to the engine: commit identity, table defaults and
// s3 access. A nil logger keeps slog's default.
func Configure(cfg *config.Config, logger *slog.Logger) {
	native.SetLogger(logger)
	if cfg == nil {
		return
	}
	native.SetDefaults(native.Defaults{
		Identity:   cfg.Identity,
		Cache:      cfg.Storage.Cache,
		Compressor: cfg.Storage.Compressor,
	})
	native.SetS3(native.S3Options{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
}

// Cleanup releases the engine's global state: open tables and files are
// flushed and released, memory tables are discarded, and every handle
// still held becomes invalid. It may be called more than once; the engine
// starts fresh on the next open.
func Cleanup() error {
	return run(native.Cleanup)
}
