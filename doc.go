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

// Package tracepack maintains a per-request context record and
// enriches every log line with it. It builds on the standard library's
// [log/slog] package.
//
// A [Record] carries an identity, a correlation id, and arbitrary
// custom fields. It is established once at the edge of a request (the
// HTTP middleware, the gRPC interceptors, or [WithScope]) and travels
// the rest of the chain inside the context.Context, the same way
// cancellation and deadlines do: a goroutine that receives the context
// inherits the record. Each logging event becomes one JSON line whose
// fixed keys (`ts`, `level`, `userId`, `txId`, `msg`) always reflect
// the genuine event; custom fields ride alongside but can never
// overwrite them, so a compromised or careless field value cannot
// spoof the message or severity of a line.
//
// The enrichment surface is the process default slog handler. [Init]
// installs it once; from then on the package-level entry points
// ([Info], [Warn], and friends), code using slog's default logger, and
// code using the legacy log package all emit enriched lines without
// modification. Lines logged without a record simply carry null
// identity and correlation.
//
// # Subpackages
//
//   - [github.com/purpleowl-io/tracepack/tracepackhttp] offers
//     net/http middleware that establishes the record from the inbound
//     request (correlation header, authenticated principal) and tags
//     the response with the correlation id.
//   - [github.com/purpleowl-io/tracepack/tracepackgrpc] provides unary
//     and stream server interceptors doing the same for gRPC, with
//     optional per-call completion lines.
//
// # Quick Start
//
// An application installs the logger once, near the top of main:
//
//	logger, err := tracepack.Init(tracepack.WithLevel(tracepack.LevelInfo))
//	if err != nil {
//	    log.Fatalf("init logging: %v", err)
//	}
//	defer logger.Close()
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/contacts", createContact)
//	http.ListenAndServe(":8080", tracepackhttp.Middleware()(mux))
//
// Inside a handler, logging picks up the record automatically:
//
//	func createContact(w http.ResponseWriter, r *http.Request) {
//	    tracepack.AddFields(r.Context(), map[string]any{"flow": "contacts"})
//	    tracepack.Info(r.Context(), "contact created")
//	}
//
// # Configuration
//
// Defaults are level info with console output. The environment
// variables TRACEPACK_LEVEL, TRACEPACK_OUTPUT, and TRACEPACK_FILE
// adjust them per deployment, and functional options such as
// [WithLevel], [WithOutput], [WithFilePath], and [WithTraceCorrelation]
// override both programmatically. Console output splits by severity:
// warn and error go to stderr, everything else to stdout. File output
// appends to the configured path and cooperates with external log
// rotation via [Logger.ReopenLogFile].
package tracepack
