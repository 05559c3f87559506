package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nickyhof/flintdb/config"
)

// Logger is the slog logger handed to flintdb.Configure. Close releases a
// log file opened for it.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New builds the logger described by cfg. Output is stderr, stdout,
// discard, or a file path that log lines are appended to.
func New(cfg config.LoggingConfig, version string) (*Logger, error) {
	var (
		output io.Writer
		file   *os.File
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	case "discard", "none":
		output = io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		output, file = f, f
	}

	logger := NewWithWriter(cfg, version, output)
	logger.file = file
	return logger, nil
}

// NewWithWriter builds a logger on w. Text output keeps timestamps short
// for the interactive shell; JSON keeps them in full.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.ReplaceAttr = shortTime
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler).With("service", "flintdb", "version", version),
	}
}

func shortTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05.000"))
	}
	return a
}

// parseLevel accepts slog level names, offsets such as "debug+2", and
// "warning". Anything else is info.
func parseLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
