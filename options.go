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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Environment variables consulted by [New], [Init], and [NewHandler].
// Programmatic options take precedence over environment values.
const (
	// envLevel sets the minimum severity: debug, info, warn, error, or
	// none.
	envLevel = "TRACEPACK_LEVEL"
	// envOutput selects the sink mode: console, file, or both.
	envOutput = "TRACEPACK_OUTPUT"
	// envFilePath holds the log file path required by the file and
	// both sink modes.
	envFilePath = "TRACEPACK_FILE"
	// envDisablePropagatorAutoSet, when true, stops the package from
	// installing the global text map propagator at init time.
	envDisablePropagatorAutoSet = "TRACEPACK_DISABLE_PROPAGATOR_AUTOSET"
)

// Output selects which sinks receive emitted lines.
type Output int

const (
	// OutputConsole routes events to the process's standard streams:
	// warn and error to the error stream, everything else to the
	// standard stream. This is the default.
	OutputConsole Output = iota
	// OutputFile appends events to the configured log file.
	OutputFile
	// OutputBoth routes every event to console and file.
	OutputBoth
)

// String returns the lowercase configuration name for o.
func (o Output) String() string {
	switch o {
	case OutputConsole:
		return "console"
	case OutputFile:
		return "file"
	case OutputBoth:
		return "both"
	default:
		return fmt.Sprintf("output(%d)", int(o))
	}
}

// ParseOutput interprets s as a sink mode name. It accepts console,
// file, and both, case-insensitively.
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "console":
		return OutputConsole, nil
	case "file":
		return OutputFile, nil
	case "both":
		return OutputBoth, nil
	default:
		return OutputConsole, fmt.Errorf("tracepack: unknown output mode %q", s)
	}
}

// ErrMissingFilePath reports that OutputFile or OutputBoth was
// selected without a log file path.
var ErrMissingFilePath = errors.New("tracepack: file output requires a file path")

// config holds the resolved settings a handler is built from, produced
// by layering defaults, environment values, and options.
type config struct {
	level            Level
	output           Output
	filePath         string
	traceCorrelation bool
	stdout           io.Writer
	stderr           io.Writer
	internalLogger   *slog.Logger
}

// options holds the configurable settings during construction. Fields
// are pointers to allow differentiating between an explicitly set zero
// value and an unset option (which then falls back to environment
// variables or defaults).
type options struct {
	level            *Level
	output           *Output
	filePath         *string
	traceCorrelation *bool
	stdout           io.Writer
	stderr           io.Writer
	internalLogger   *slog.Logger
}

// Option configures logger and handler construction via [New], [Init],
// and [NewHandler]. Options are applied sequentially, so later options
// override earlier ones and settings derived from environment
// variables.
type Option func(*options)

// WithLevel returns an Option that sets the minimum severity.
// This setting overrides the TRACEPACK_LEVEL environment variable.
func WithLevel(level Level) Option {
	return func(o *options) {
		lvl := level
		o.level = &lvl
	}
}

// WithOutput returns an Option that selects the sink mode.
// This setting overrides the TRACEPACK_OUTPUT environment variable.
func WithOutput(output Output) Option {
	return func(o *options) {
		out := output
		o.output = &out
	}
}

// WithFilePath returns an Option that sets the log file used by
// OutputFile and OutputBoth, overriding the TRACEPACK_FILE environment
// variable. The path is resolved to an absolute path and missing
// parent directories are created during construction; failures there
// surface as construction errors.
func WithFilePath(path string) Option {
	return func(o *options) {
		p := path
		o.filePath = &p
	}
}

// WithConsoleWriters returns an Option that overrides the standard and
// error streams used by console output. The defaults are os.Stdout and
// os.Stderr, captured when the handler is built. Passing nil for
// either writer keeps its default. Intended for tests and for
// embedding the logger behind another output system.
func WithConsoleWriters(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithInternalLogger returns an Option that routes the package's own
// diagnostics (malformed environment values, sink write failures,
// dropped reserved keys) to logger. Diagnostics are discarded by
// default, so enrichment problems never leak into application output
// unless asked for.
func WithInternalLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.internalLogger = logger
	}
}

// WithTraceCorrelation returns an Option controlling whether emitted
// lines carry otel.trace_id, otel.span_id, and otel.trace_sampled
// fields when the logging context holds a valid span. Defaults to
// false.
func WithTraceCorrelation(enabled bool) Option {
	return func(o *options) {
		e := enabled
		o.traceCorrelation = &e
	}
}

// envConfigCache memoizes the environment snapshot so repeated handler
// construction does not re-read the environment.
var envConfigCache atomic.Pointer[config]

// resetEnvConfigCache clears the memoized environment snapshot. Tests
// call it after mutating TRACEPACK_ variables.
func resetEnvConfigCache() {
	envConfigCache.Store(nil)
}

// cachedConfigFromEnv returns the process-wide environment snapshot,
// loading it on first use. internalLogger receives notes about
// malformed values encountered during that first load.
func cachedConfigFromEnv(internalLogger *slog.Logger) config {
	if cfg := envConfigCache.Load(); cfg != nil {
		return *cfg
	}
	cfg := loadConfigFromEnv(internalLogger)
	envConfigCache.CompareAndSwap(nil, &cfg)
	if cached := envConfigCache.Load(); cached != nil {
		return *cached
	}
	return cfg
}

// loadConfigFromEnv reads the TRACEPACK_ variables into a config,
// starting from the defaults (level info, console output). Malformed
// values keep the default and are noted on internalLogger.
func loadConfigFromEnv(internalLogger *slog.Logger) config {
	cfg := config{
		level:  LevelInfo,
		output: OutputConsole,
	}
	if raw, ok := os.LookupEnv(envLevel); ok && strings.TrimSpace(raw) != "" {
		if lvl, err := ParseLevel(raw); err == nil {
			cfg.level = lvl
		} else {
			logDiagnostic(internalLogger, slog.LevelWarn,
				"invalid level in environment; keeping default",
				slog.String("var", envLevel),
				slog.String("value", raw))
		}
	}
	if raw, ok := os.LookupEnv(envOutput); ok && strings.TrimSpace(raw) != "" {
		if out, err := ParseOutput(raw); err == nil {
			cfg.output = out
		} else {
			logDiagnostic(internalLogger, slog.LevelWarn,
				"invalid output mode in environment; keeping default",
				slog.String("var", envOutput),
				slog.String("value", raw))
		}
	}
	if raw, ok := os.LookupEnv(envFilePath); ok && strings.TrimSpace(raw) != "" {
		cfg.filePath = strings.TrimSpace(raw)
	}
	return cfg
}

// applyOptions layers explicitly set options over cfg.
func applyOptions(cfg *config, o *options) {
	if o.level != nil {
		cfg.level = *o.level
	}
	if o.output != nil {
		cfg.output = *o.output
	}
	if o.filePath != nil {
		cfg.filePath = *o.filePath
	}
	if o.traceCorrelation != nil {
		cfg.traceCorrelation = *o.traceCorrelation
	}
	if o.stdout != nil {
		cfg.stdout = o.stdout
	}
	if o.stderr != nil {
		cfg.stderr = o.stderr
	}
	if o.internalLogger != nil {
		cfg.internalLogger = o.internalLogger
	}
}

// parseBoolEnv interprets the named environment variable as a boolean,
// returning def when the variable is unset, empty, or malformed.
func parseBoolEnv(name string, def bool, internalLogger *slog.Logger) bool {
	raw, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		logDiagnostic(internalLogger, slog.LevelWarn,
			"invalid boolean in environment; keeping default",
			slog.String("var", name),
			slog.String("value", raw))
		return def
	}
	return v
}

// logDiagnostic writes one internal diagnostic, tolerating a nil
// logger.
func logDiagnostic(logger *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
