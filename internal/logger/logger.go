package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"mewego-bot/internal/config"
)

// New builds the application logger. Output always goes to stderr; when
// LOG_FILE is set it is also written to a rotating file. Production uses
// JSON lines, development uses the colored text format.
func New(cfg *config.Config) (*log.Logger, error) {
	var writer io.Writer = os.Stderr

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	return NewWithWriter(writer, cfg.LogLevel, cfg.IsProduction())
}

func NewWithWriter(w io.Writer, level string, json bool) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := log.Options{
		ReportTimestamp: true,
		ReportCaller:    lvl == log.DebugLevel,
		Level:           lvl,
		Prefix:          "mewego",
	}
	if json {
		opts.Formatter = log.JSONFormatter
	}

	return log.NewWithOptions(w, opts), nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
