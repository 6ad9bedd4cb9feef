package logging

import (
	"io"
	"os"

	supportlog "github.com/stellar/go/support/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/config"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/metrics"
)

const (
	maxLogFileSizeMB  = 100
	maxLogFileBackups = 5
)

// Logger is the process logger along with the rotated log file, if any.
type Logger struct {
	*supportlog.Entry
	file *lumberjack.Logger
}

// New builds the process logger from the log-* options. Lines are always
// written to stderr and, when log-file is set, to a rotated file as well.
// The log line counters of registry are hooked in when present.
func New(cfg *config.Config, registry *metrics.Registry) *Logger {
	return newLogger(cfg, registry, os.Stderr)
}

func newLogger(cfg *config.Config, registry *metrics.Registry, stderr io.Writer) *Logger {
	logger := &Logger{Entry: supportlog.New()}
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == config.LogFormatJSON {
		logger.UseJSONFormatter()
	}

	out := stderr
	if cfg.LogFile != "" {
		logger.file = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    maxLogFileSizeMB,
			MaxBackups: maxLogFileBackups,
			Compress:   true,
		}
		out = io.MultiWriter(stderr, logger.file)
	}
	logger.SetOutput(out)

	if registry != nil && registry.LogHook != nil {
		logger.AddHook(registry.LogHook)
	}
	return logger
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
