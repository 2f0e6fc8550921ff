// Package observability sets up logging and metrics for the js8msg binary.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"js8msg/config"
)

// InitLogger builds the process logger: a console writer on out, plus a
// rotated JSON log file when cfg.File is set. The returned closer flushes
// the file and is never nil.
func InitLogger(app string, cfg config.LogConfig, out io.Writer) (zerolog.Logger, io.Closer) {
	if out == nil {
		out = os.Stderr
	}
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}

	var (
		writer io.Writer = console
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		writer = zerolog.MultiLevelWriter(console, file)
		closer = file
	}

	logger := zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, closer
}

// ParseLevel maps a config level name to a zerolog level; unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	if strings.TrimSpace(name) == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
