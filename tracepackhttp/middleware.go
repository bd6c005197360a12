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

// Package tracepackhttp provides net/http server middleware that establishes
// a per-request context record for tracepack-enriched logging.
//
// For every request the middleware reads the inbound correlation id header
// (minting a fresh id when the header is absent), resolves the caller
// identity from the request principal, tags the response with the correlation
// id, and binds the resulting record to the request context. Every log call
// made while serving the request then carries the same userId and txId, and
// the client receives the id it can quote when reporting problems.
//
// Install the middleware after authentication so the principal is already in
// the request context when the record is seeded:
//
//	handler := tracepackhttp.Middleware()(mux)
//	srv := &http.Server{Addr: ":8080", Handler: authenticate(handler)}
//
// Note the composition order above: authenticate runs first, then the
// middleware, then mux.
package tracepackhttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/purpleowl-io/tracepack"
)

const instrumentationName = "github.com/purpleowl-io/tracepack/tracepackhttp"

// CorrelationHeader is the default header consulted for an inbound
// correlation id and set on every response.
const CorrelationHeader = "X-Transaction-Id"

// Middleware returns an http.Handler middleware that binds a context record
// to each request and mirrors the correlation id onto the response.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		recordHandler := buildRecordHandler(cfg, next)
		return wrapWithOTel(cfg, recordHandler)
	}
}

// buildRecordHandler constructs the record-establishing handler around next.
func buildRecordHandler(cfg *config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		txID := strings.TrimSpace(r.Header.Get(cfg.correlationHeader))
		if txID == "" {
			txID = cfg.generator()
		}
		identity, _ := resolveIdentity(cfg, r)
		rec := tracepack.NewRecord(tracepack.Seed{
			Identity:      identity,
			CorrelationID: txID,
		})

		// Tag the response before the handler runs so the id survives
		// handlers that write headers immediately.
		w.Header().Set(cfg.correlationHeader, rec.CorrelationID())

		r = r.WithContext(tracepack.ContextWithRecord(r.Context(), rec))

		if !cfg.logRequests {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		logRequest(r, recorder, time.Since(start))
	})
}

// resolveIdentity determines the caller identity for the request, consulting
// the configured resolver first and the context principal otherwise.
func resolveIdentity(cfg *config, r *http.Request) (string, bool) {
	if cfg.identityResolver != nil {
		return cfg.identityResolver(r)
	}
	principal, ok := tracepack.PrincipalFromContext(r.Context())
	if !ok {
		return "", false
	}
	return tracepack.ResolveIdentity(principal, cfg.identityPath)
}

// logRequest emits the completion entry for a served request.
func logRequest(r *http.Request, recorder *responseRecorder, elapsed time.Duration) {
	path := ""
	if r.URL != nil {
		path = r.URL.Path
	}
	tracepack.Info(r.Context(), "http request completed",
		slog.String("http.method", r.Method),
		slog.String("http.path", path),
		slog.Int("http.status", recorder.Status()),
		slog.Int64("http.response_bytes", recorder.BytesWritten()),
		slog.Duration("http.duration", elapsed),
	)
}

// wrapWithOTel wraps handler with otelhttp middleware when enabled.
func wrapWithOTel(cfg *config, handler http.Handler) http.Handler {
	if !cfg.enableOTel {
		return handler
	}
	var otelOpts []otelhttp.Option
	if cfg.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
	}
	return otelhttp.NewHandler(handler, instrumentationName, otelOpts...)
}

// responseRecorder tracks the status code and byte count of a response so the
// completion entry can report them.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	written     int64
}

// WriteHeader records the first status code before delegating to the wrapped
// writer.
func (rr *responseRecorder) WriteHeader(status int) {
	if rr.wroteHeader {
		rr.ResponseWriter.WriteHeader(status)
		return
	}
	rr.status = status
	rr.wroteHeader = true
	rr.ResponseWriter.WriteHeader(status)
}

// Write counts bytes written and forwards the call to the underlying writer.
func (rr *responseRecorder) Write(p []byte) (int, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	n, err := rr.ResponseWriter.Write(p)
	rr.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("write response body: %w", err)
	}
	return n, nil
}

// Flush forwards to the underlying writer when it supports flushing.
func (rr *responseRecorder) Flush() {
	if f, ok := rr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer so http.ResponseController keeps working.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// Status returns the recorded status code with a default of 200.
func (rr *responseRecorder) Status() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}

// BytesWritten returns the number of response body bytes written so far.
func (rr *responseRecorder) BytesWritten() int64 {
	return rr.written
}
