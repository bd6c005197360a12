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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Handler renders each logging event as one enriched JSON line and
// dispatches it to the configured sinks. It implements slog.Handler;
// build one with [NewHandler] when wiring a custom slog.Logger, or let
// [New] and [Init] do it.
//
// Every line carries the fixed keys ts, level, userId, txId, and msg.
// The identity and correlation id come from the [Record] bound to the
// logging context; with no record they are null. Custom record fields
// and per-call fields appear alongside, except that nothing may
// overwrite the fixed keys.
type Handler struct {
	slog.Handler

	dispatcher *dispatcher
	levelVar   *slog.LevelVar

	closeOnce sync.Once
	closeErr  error
}

// NewHandler builds a Handler from environment values and opts.
// Options override the environment; see the package documentation for
// the variables consulted. The error is non-nil only for configuration
// problems: a missing file path for file output, or a log file that
// cannot be created.
func NewHandler(opts ...Option) (*Handler, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	internalLogger := o.internalLogger
	if internalLogger == nil {
		internalLogger = slog.New(slog.DiscardHandler)
	}

	cfg := cachedConfigFromEnv(internalLogger)
	applyOptions(&cfg, o)
	if cfg.internalLogger == nil {
		cfg.internalLogger = internalLogger
	}
	if cfg.stdout == nil {
		cfg.stdout = os.Stdout
	}
	if cfg.stderr == nil {
		cfg.stderr = os.Stderr
	}

	d, err := newDispatcher(&cfg)
	if err != nil {
		return nil, err
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(cfg.level))

	return &Handler{
		Handler: &lineHandler{
			leveler:          levelVar,
			dispatcher:       d,
			internalLogger:   cfg.internalLogger,
			traceCorrelation: cfg.traceCorrelation,
		},
		dispatcher: d,
		levelVar:   levelVar,
	}, nil
}

// SetLevel adjusts the minimum severity at runtime. It affects every
// logger built on this handler, including clones made with With and
// WithGroup.
func (h *Handler) SetLevel(level Level) {
	h.levelVar.Set(slog.Level(level))
}

// Level reports the current minimum severity.
func (h *Handler) Level() Level {
	return Level(h.levelVar.Level())
}

// ReopenLogFile closes and reopens the log file at its configured
// path. External log rotation can move the current file aside and then
// call this to start a fresh one. It is a no-op when no file sink is
// configured.
func (h *Handler) ReopenLogFile() error {
	return h.dispatcher.reopenFile()
}

// Close releases the file sink when one is owned. Writes are
// synchronous, so there is nothing to flush. Close is safe to call
// multiple times; later calls return the first result.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.dispatcher.close()
	})
	return h.closeErr
}

// groupedAttr pairs a handler-bound attribute with the group path that
// was open when it was added.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

// lineHandler is the slog.Handler core: it assembles the enriched
// payload for one event and hands the encoded line to the dispatcher.
// Clones produced by WithAttrs and WithGroup share the dispatcher and
// leveler.
type lineHandler struct {
	leveler          slog.Leveler
	dispatcher       *dispatcher
	internalLogger   *slog.Logger
	traceCorrelation bool

	groupedAttrs []groupedAttr
	groups       []string
}

var _ slog.Handler = (*lineHandler)(nil)

// Enabled gates events below the minimum severity before any payload
// work happens.
func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.leveler.Level()
}

// Handle assembles and emits one line. The order of assembly is what
// protects the format: handler-bound and per-call fields first, then
// the record's custom fields (skipping reserved keys), then trace
// correlation, and the authoritative fixed fields written last so
// nothing can shadow them.
//
// Serialization failures degrade to a fallback line instead of
// surfacing; the returned error reflects only sink write problems,
// which slog discards, so application call sites never observe a
// logging failure.
func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}

	payload := make(map[string]any, len(h.groupedAttrs)+r.NumAttrs()+8)

	for _, ga := range h.groupedAttrs {
		setPayloadValue(ensureGroupMap(payload, ga.groups), ga.attr)
	}
	if r.NumAttrs() > 0 {
		target := ensureGroupMap(payload, h.groups)
		r.Attrs(func(a slog.Attr) bool {
			setPayloadValue(target, a)
			return true
		})
	}
	pruneEmptyMaps(payload)

	rec, hasRecord := RecordFromContext(ctx)
	if hasRecord {
		for k, v := range rec.Fields() {
			if isReservedKey(k) {
				logDiagnostic(h.internalLogger, slog.LevelDebug,
					"dropped reserved key from custom fields",
					slog.String("key", k))
				continue
			}
			payload[k] = v
		}
	}

	if h.traceCorrelation {
		if attrs, ok := TraceAttributes(ctx); ok {
			for _, a := range attrs {
				payload[a.Key] = resolveAttrValue(a.Value.Resolve())
			}
		}
	}

	eventTime := r.Time
	if eventTime.IsZero() {
		eventTime = time.Now()
	}
	var identity, correlation any
	if hasRecord {
		if id, ok := rec.Identity(); ok {
			identity = id
		}
		correlation = rec.CorrelationID()
	}
	payload[timestampKey] = eventTime.UTC().Format(time.RFC3339Nano)
	payload[levelKey] = levelString(r.Level)
	payload[identityKey] = identity
	payload[correlationKey] = correlation
	payload[messageKey] = r.Message

	buf, err := encodeLine(sanitizePayload(payload))
	if err != nil {
		logDiagnostic(h.internalLogger, slog.LevelWarn,
			"payload serialization failed; emitting fallback line",
			slog.String("error", err.Error()))
		buf, err = encodeLine(fallbackPayload(payload, err))
		if err != nil {
			// Fallback payloads hold only strings and nulls; failing
			// to encode one means the encoder itself is broken.
			return fmt.Errorf("tracepack: encode fallback line: %w", err)
		}
	}
	err = h.dispatcher.dispatch(r.Level, buf.Bytes())
	freeLineBuffer(buf)
	return err
}

// WithAttrs returns a handler that adds attrs, resolved under the
// currently open group path, to every subsequent line.
func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := h.clone()
	for _, a := range attrs {
		clone.groupedAttrs = append(clone.groupedAttrs, groupedAttr{
			groups: clone.groups,
			attr:   a,
		})
	}
	return clone
}

// WithGroup returns a handler that nests subsequent per-call fields
// under name.
func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

// clone copies h with independent attr and group slices so divergent
// logger trees never share append targets.
func (h *lineHandler) clone() *lineHandler {
	c := *h
	c.groupedAttrs = make([]groupedAttr, len(h.groupedAttrs), len(h.groupedAttrs)+4)
	copy(c.groupedAttrs, h.groupedAttrs)
	c.groups = make([]string, len(h.groups), len(h.groups)+1)
	copy(c.groups, h.groups)
	return &c
}

// fallbackPayload preserves the authoritative fields of a line whose
// payload could not be serialized, replacing everything else with a
// description of the failure. Something always reaches the sink.
func fallbackPayload(payload map[string]any, encodeErr error) map[string]any {
	return map[string]any{
		timestampKey:   payload[timestampKey],
		levelKey:       payload[levelKey],
		identityKey:    payload[identityKey],
		correlationKey: payload[correlationKey],
		messageKey:     payload[messageKey],
		logErrorKey:    "payload serialization failed: " + encodeErr.Error(),
	}
}

// lineBufferPool recycles encode buffers across events.
var lineBufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// maxRetainedBufferSize caps the buffers returned to the pool so one
// oversized payload does not pin memory for the life of the process.
const maxRetainedBufferSize = 1 << 16

// encodeLine renders payload as one newline-terminated JSON object.
// The returned buffer belongs to lineBufferPool; callers hand it back
// through freeLineBuffer once the bytes are written out.
func encodeLine(payload map[string]any) (*bytes.Buffer, error) {
	buf := lineBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		freeLineBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// freeLineBuffer returns buf to the pool unless it grew past the
// retention cap.
func freeLineBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxRetainedBufferSize {
		return
	}
	lineBufferPool.Put(buf)
}
