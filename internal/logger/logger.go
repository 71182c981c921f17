// README: Structured logger (logrus) configured from LoggerConfig.
package logger

import (
	"io"
	"os"
	"strings"

	"taxibook/internal/config"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Logger
}

// New builds a logger. An unknown level falls back to info, an unknown
// format to JSON. When File cannot be opened the logger keeps writing to stdout.
func New(cfg *config.LoggerConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	l.SetOutput(os.Stdout)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.WithError(err).WithField("file", cfg.File).Warn("log file unavailable, using stdout")
		} else {
			l.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}
	return &Logger{Logger: l}
}

// Discard returns a logger that writes nowhere, for tests and CLI tools.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}
