// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides a small leveled, structured logger used by
// every long-running worker in the control plane. It wraps log/slog
// rather than inventing a formatting layer from scratch.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level mirrors slog's levels so callers don't need to import log/slog
// directly.
type Level int

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// Config controls logger construction.
type Config struct {
	Level  Level
	Output io.Writer // defaults to os.Stderr
	JSON   bool       // structured JSON output instead of text
	Syslog SyslogConfig
}

// DefaultConfig returns the default logger configuration: info level,
// text output to stderr, syslog disabled. The YAML config file has no
// logging keys, so taepctl always logs with this configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		JSON:   false,
		Syslog: DefaultSyslogConfig(),
	}
}

// Logger is a thin, leveled facade over *slog.Logger. Every long-running
// worker (HHD picker, metrics collector, flow-learning timer) and the
// HTTP surface take one of these rather than reaching for the global
// logger, so tests can inject a buffer and assert on output.
type Logger struct {
	inner *slog.Logger
}

// New builds a Logger from cfg. If cfg.Syslog.Enabled, log records are
// additionally written to a syslog connection; failures to dial the
// syslog endpoint are logged to the base writer and otherwise ignored,
// consistent with this system's "background workers never fail loudly"
// error policy.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var writers []io.Writer
	writers = append(writers, out)
	if cfg.Syslog.Enabled {
		sw, err := NewSyslogWriter(cfg.Syslog)
		if err != nil {
			slog.New(slog.NewTextHandler(out, nil)).Warn("syslog writer unavailable, logging locally only", "error", err)
		} else {
			writers = append(writers, sw)
		}
	}

	var dest io.Writer = out
	if len(writers) > 1 {
		dest = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: slog.Level(cfg.Level)}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(dest, opts)
	} else {
		handler = slog.NewTextHandler(dest, opts)
	}

	return &Logger{inner: slog.New(handler)}
}

// With returns a Logger that always includes the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
