// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides structured leveled logging on top of log/slog.
// Packages obtain a logger once via WithContext and log key/value pairs:
//
//	var logger = log.WithContext("pkg", "staking")
//	logger.Info("advanced round", "round", idx)
package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the leveled key/value logger used across the repo.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)

	// With returns a child logger with the given key/value context attached.
	With(keyvals ...any) Logger
}

var root atomic.Pointer[slog.Logger]

func init() {
	root.Store(slog.New(discardHandler{}))
}

// SetDefault replaces the process-wide root handler. Loggers created before
// the call keep their old handler; call it before constructing components.
func SetDefault(h slog.Handler) {
	root.Store(slog.New(h))
}

// NewTextHandler returns a human-readable handler writing to stderr.
func NewTextHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

// NewJSONHandler returns a machine-readable handler writing to stderr.
func NewJSONHandler(level slog.Level) slog.Handler {
	return slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

// WithContext returns a logger carrying the given key/value context.
func WithContext(keyvals ...any) Logger {
	return &logger{attrs: keyvals}
}

// logger resolves the root handler on every call, so SetDefault applies to
// package-level loggers created at init time.
type logger struct {
	attrs []any
}

func (l *logger) log(level slog.Level, msg string, keyvals []any) {
	lg := root.Load()
	if len(l.attrs) > 0 {
		lg = lg.With(l.attrs...)
	}
	lg.Log(context.Background(), level, msg, keyvals...)
}

func (l *logger) Debug(msg string, keyvals ...any) { l.log(slog.LevelDebug, msg, keyvals) }
func (l *logger) Info(msg string, keyvals ...any)  { l.log(slog.LevelInfo, msg, keyvals) }
func (l *logger) Warn(msg string, keyvals ...any)  { l.log(slog.LevelWarn, msg, keyvals) }
func (l *logger) Error(msg string, keyvals ...any) { l.log(slog.LevelError, msg, keyvals) }

func (l *logger) With(keyvals ...any) Logger {
	attrs := make([]any, 0, len(l.attrs)+len(keyvals))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, keyvals...)
	return &logger{attrs: attrs}
}

// discardHandler drops all records. It is the default until SetDefault is called.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
