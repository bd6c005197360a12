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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// dispatcher routes encoded lines to the sinks the output mode
// selects. Console writes go through writer references captured at
// construction time, never through the intercepted logging surface, so
// installing the logger as the process default cannot feed the
// dispatcher back into itself.
type dispatcher struct {
	output Output

	consoleMu sync.Mutex
	stdout    io.Writer
	stderr    io.Writer

	fileMu    sync.Mutex
	file      *SwitchableWriter
	ownedFile *os.File
	filePath  string

	internalLogger *slog.Logger
}

// newDispatcher validates the sink configuration and opens the file
// sink when the output mode requires one. Configuration problems are
// the one class of error this package refuses to swallow; they surface
// here, at construction.
func newDispatcher(cfg *config) (*dispatcher, error) {
	d := &dispatcher{
		output:         cfg.output,
		stdout:         cfg.stdout,
		stderr:         cfg.stderr,
		internalLogger: cfg.internalLogger,
	}
	if cfg.output != OutputFile && cfg.output != OutputBoth {
		return d, nil
	}
	if cfg.filePath == "" {
		return nil, ErrMissingFilePath
	}
	path, err := resolveLogFilePath(cfg.filePath)
	if err != nil {
		return nil, err
	}
	f, err := openLogFile(path)
	if err != nil {
		return nil, err
	}
	d.filePath = path
	d.ownedFile = f
	d.file = NewSwitchableWriter(f)
	return d, nil
}

// resolveLogFilePath makes path absolute and creates missing parent
// directories.
func resolveLogFilePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("tracepack: resolve log file path %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", fmt.Errorf("tracepack: create log directory for %q: %w", abs, err)
	}
	return abs, nil
}

// openLogFile opens path for appending, creating it when missing.
func openLogFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("tracepack: open log file %q: %w", path, err)
	}
	return f, nil
}

// dispatch writes one encoded line to every active sink. Write
// failures are noted on the internal diagnostics logger and the first
// one is returned for handler-level introspection; they never escalate
// past the logging call.
func (d *dispatcher) dispatch(level slog.Level, line []byte) error {
	var firstErr error
	if d.output == OutputConsole || d.output == OutputBoth {
		if err := d.writeConsole(level, line); err != nil {
			firstErr = err
			logDiagnostic(d.internalLogger, slog.LevelWarn,
				"console sink write failed",
				slog.String("error", err.Error()))
		}
	}
	if d.file != nil && (d.output == OutputFile || d.output == OutputBoth) {
		if _, err := d.file.Write(line); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logDiagnostic(d.internalLogger, slog.LevelWarn,
				"file sink write failed",
				slog.String("path", d.filePath),
				slog.String("error", err.Error()))
		}
	}
	return firstErr
}

// writeConsole routes warnings and errors to the error stream and
// everything else to the standard stream.
func (d *dispatcher) writeConsole(level slog.Level, line []byte) error {
	w := d.stdout
	if level >= slog.LevelWarn {
		w = d.stderr
	}
	if w == nil {
		return nil
	}
	d.consoleMu.Lock()
	defer d.consoleMu.Unlock()
	_, err := w.Write(line)
	return err
}

// reopenFile swaps the file sink to a freshly opened handle at the
// configured path, for use after external log rotation has moved the
// current file aside. It is a no-op when no file sink is configured.
func (d *dispatcher) reopenFile() error {
	if d.file == nil {
		return nil
	}
	d.fileMu.Lock()
	defer d.fileMu.Unlock()
	f, err := openLogFile(d.filePath)
	if err != nil {
		return err
	}
	old := d.ownedFile
	d.file.SetWriter(f)
	d.ownedFile = f
	if old != nil {
		if err := old.Close(); err != nil {
			logDiagnostic(d.internalLogger, slog.LevelWarn,
				"close rotated log file failed",
				slog.String("path", d.filePath),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// close releases the file sink. Console writers are never closed; the
// process owns them.
func (d *dispatcher) close() error {
	if d.file == nil {
		return nil
	}
	d.fileMu.Lock()
	defer d.fileMu.Unlock()
	var firstErr error
	if err := d.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		firstErr = err
	}
	if d.ownedFile != nil {
		if err := d.ownedFile.Close(); err != nil && firstErr == nil && !errors.Is(err, os.ErrClosed) {
			firstErr = err
		}
		d.ownedFile = nil
	}
	return firstErr
}
