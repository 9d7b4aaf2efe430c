package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/petems/micrecorder/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much is logged
type Options struct {
	Level   string
	File    string // empty disables the log file
	Console io.Writer
}

// New creates a zerolog logger with console and rotating file output
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
	}

	if opts.File != "" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			})
		}
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).Level(level).With().Timestamp().Caller().Logger()
}

// FromConfig creates the logger described by cfg
func FromConfig(cfg *config.Config) zerolog.Logger {
	return New(Options{Level: cfg.LogLevel, File: cfg.LogFile})
}
