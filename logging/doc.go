// Package logging provides structured logging for FlintDB.
//
// It wraps log/slog with level parsing and JSON or text output, and adds
// a service and version field to every entry.
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	flintdb.Configure(cfg, logger.Logger)
//
// The engine logs opens, closes and commits at debug level and cleanup at
// info level.
package logging
