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
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Field names used when trace correlation adds span identifiers to a
// line (see [WithTraceCorrelation]).
const (
	// TraceIDKey is the field name for the 32-char lowercase hex trace
	// id.
	TraceIDKey = "otel.trace_id"
	// SpanIDKey is the field name for the 16-char lowercase hex span
	// id.
	SpanIDKey = "otel.span_id"
	// TraceSampledKey is the field name for the boolean sampling
	// decision.
	TraceSampledKey = "otel.trace_sampled"
)

// TraceAttributes extracts OpenTelemetry span identifiers from ctx as
// slog attrs, suitable for logger.With or direct payload enrichment.
// ok is false when ctx holds no valid span context.
//
// This helper is intentionally light-weight: it does not create spans,
// does not parse headers, and does not mutate context. Upstream
// middleware populates the span context (via OTel propagators) before
// logging reaches this point.
func TraceAttributes(ctx context.Context) (attrs []slog.Attr, ok bool) {
	if ctx == nil {
		return nil, false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil, false
	}
	return []slog.Attr{
		slog.String(TraceIDKey, sc.TraceID().String()),
		slog.String(SpanIDKey, sc.SpanID().String()),
		slog.Bool(TraceSampledKey, sc.IsSampled()),
	}, true
}
