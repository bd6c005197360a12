// Copyright 2026 The tracepack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracepack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Logger couples an slog.Logger with the [Handler] that renders its
// events. Build one with [New] for scoped use, or [Init] to install it
// as the process default so every logging surface picks up enrichment.
//
// Use the standard slog methods (InfoContext, With, WithGroup, and so
// on) or the package-level entry points; both route through the same
// handler. Call Close during shutdown to release the log file and,
// for an installed logger, to restore the previous process default.
type Logger struct {
	*slog.Logger

	handler *Handler

	closeOnce sync.Once
	closeErr  error
}

// New builds a Logger from environment values and opts without
// touching process globals. Libraries that want an isolated enriched
// logger use New; applications normally call [Init].
func New(opts ...Option) (*Logger, error) {
	h, err := NewHandler(opts...)
	if err != nil {
		return nil, err
	}
	return &Logger{
		Logger:  slog.New(h),
		handler: h,
	}, nil
}

// Init builds a Logger like [New] and installs it as the process
// default via slog.SetDefault. From then on the package-level entry
// points, slog's default logger, and the legacy log package all render
// enriched JSON lines; existing call sites need no changes.
//
// The logger that was active before the first install is remembered
// and restored by Close. Calling Init again replaces the installed
// logger without overwriting that memory, so installs are idempotent
// with respect to the original default.
func Init(opts ...Option) (*Logger, error) {
	l, err := New(opts...)
	if err != nil {
		return nil, err
	}
	install(l)
	return l, nil
}

// SetLevel adjusts the minimum severity at runtime.
func (l *Logger) SetLevel(level Level) {
	l.handler.SetLevel(level)
}

// ReopenLogFile closes and reopens the log file at its configured
// path, for use after external log rotation. It is a no-op when no
// file sink is configured.
func (l *Logger) ReopenLogFile() error {
	return l.handler.ReopenLogFile()
}

// Close uninstalls l when it is the process default, restoring the
// logger that was active before the first install, and releases the
// file sink. It is safe to call multiple times; later calls return the
// first result.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		uninstall(l)
		l.closeErr = l.handler.Close()
	})
	return l.closeErr
}

// Process-default install state. The original default is captured once,
// on the first install, and never replaced by one of our own loggers,
// so Close always restores what the application started with.
var (
	installMu       sync.Mutex
	installedLogger *Logger
	originalDefault *slog.Logger
)

// install makes l the process default.
func install(l *Logger) {
	installMu.Lock()
	defer installMu.Unlock()
	if installedLogger == nil {
		originalDefault = slog.Default()
	}
	installedLogger = l
	slog.SetDefault(l.Logger)
}

// uninstall retires l if it is the installed default, restoring the
// pre-install logger. Closing a logger that was already replaced by a
// newer install changes nothing.
func uninstall(l *Logger) {
	installMu.Lock()
	defer installMu.Unlock()
	if installedLogger != l {
		return
	}
	installedLogger = nil
	if originalDefault != nil {
		slog.SetDefault(originalDefault)
		originalDefault = nil
	}
}

// Debug logs msg at debug severity, enriched with ctx's record.
func Debug(ctx context.Context, msg any, args ...any) {
	emit(ctx, slog.LevelDebug, msg, args)
}

// Info logs msg at info severity, enriched with ctx's record.
func Info(ctx context.Context, msg any, args ...any) {
	emit(ctx, slog.LevelInfo, msg, args)
}

// Log is the informational alias: it logs at the same severity as
// [Info]. It exists so call sites ported from console-style logging
// keep reading naturally.
func Log(ctx context.Context, msg any, args ...any) {
	emit(ctx, slog.LevelInfo, msg, args)
}

// Warn logs msg at warn severity, enriched with ctx's record.
func Warn(ctx context.Context, msg any, args ...any) {
	emit(ctx, slog.LevelWarn, msg, args)
}

// Error logs msg at error severity, enriched with ctx's record.
func Error(ctx context.Context, msg any, args ...any) {
	emit(ctx, slog.LevelError, msg, args)
}

// emit routes one event through the process default logger. The level
// gate runs before any argument work so disabled levels cost almost
// nothing.
func emit(ctx context.Context, level slog.Level, msg any, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.Default()
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.LogAttrs(ctx, level, coerceMessage(msg), normalizeArgs(args)...)
}

// coerceMessage renders the first logging argument as the line
// message: strings pass through, errors render their message,
// Stringers their String, and everything else goes through fmt.Sprint.
func coerceMessage(msg any) string {
	switch m := msg.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprint(msg)
	}
}

// normalizeArgs converts positional logging arguments into attrs. A
// single map[string]any argument supplies structured fields verbatim;
// slog.Attr arguments become fields wherever they appear; remaining
// positional values are collected, in order, into the args array
// field.
func normalizeArgs(args []any) []slog.Attr {
	if len(args) == 0 {
		return nil
	}
	if len(args) == 1 {
		switch v := args[0].(type) {
		case map[string]any:
			attrs := make([]slog.Attr, 0, len(v))
			for k, val := range v {
				attrs = append(attrs, slog.Any(k, val))
			}
			return attrs
		case slog.Attr:
			return []slog.Attr{v}
		}
	}
	var attrs []slog.Attr
	var positional []any
	for _, a := range args {
		if attr, ok := a.(slog.Attr); ok {
			attrs = append(attrs, attr)
			continue
		}
		positional = append(positional, a)
	}
	if len(positional) > 0 {
		attrs = append(attrs, slog.Any(argsKey, positional))
	}
	return attrs
}
