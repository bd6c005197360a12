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

package tracepackhttp

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/purpleowl-io/tracepack"
)

// Option configures the HTTP middleware.
type Option func(*config)

type config struct {
	correlationHeader string
	generator         func() string
	identityPath      string
	identityResolver  func(*http.Request) (string, bool)
	logRequests       bool
	enableOTel        bool
	tracerProvider    trace.TracerProvider
}

// defaultConfig returns the baseline configuration for the middleware.
func defaultConfig() *config {
	return &config{
		correlationHeader: CorrelationHeader,
		generator:         tracepack.NewCorrelationID,
		identityPath:      tracepack.DefaultIdentityPath,
	}
}

// applyOptions applies the provided options on top of defaultConfig and
// restores defaults for values an option cleared.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if strings.TrimSpace(cfg.correlationHeader) == "" {
		cfg.correlationHeader = CorrelationHeader
	}
	if cfg.generator == nil {
		cfg.generator = tracepack.NewCorrelationID
	}
	if cfg.identityPath == "" {
		cfg.identityPath = tracepack.DefaultIdentityPath
	}
	return cfg
}

// WithCorrelationHeader overrides the header consulted for an inbound
// correlation id and written back on responses. The default is
// [CorrelationHeader].
func WithCorrelationHeader(name string) Option {
	return func(cfg *config) {
		cfg.correlationHeader = strings.TrimSpace(name)
	}
}

// WithCorrelationIDGenerator overrides how correlation ids are minted for
// requests that arrive without one. The default is
// [tracepack.NewCorrelationID].
func WithCorrelationIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		cfg.generator = fn
	}
}

// WithIdentityPath overrides the dotted path used to extract the caller
// identity from the request principal. The default is
// [tracepack.DefaultIdentityPath].
func WithIdentityPath(path string) Option {
	return func(cfg *config) {
		cfg.identityPath = path
	}
}

// WithIdentityResolver replaces principal-based identity resolution with a
// custom callback. The callback receives the request after any earlier
// middleware has run and reports the identity together with whether one was
// found. When set, [WithIdentityPath] has no effect.
func WithIdentityResolver(fn func(*http.Request) (string, bool)) Option {
	return func(cfg *config) {
		cfg.identityResolver = fn
	}
}

// WithRequestLogging toggles emission of a completion entry for every request
// carrying method, path, status, response size, and duration. Disabled by
// default so the middleware only establishes context.
func WithRequestLogging(enabled bool) Option {
	return func(cfg *config) {
		cfg.logRequests = enabled
	}
}

// WithOTel enables otelhttp instrumentation around the middleware so spans
// exist by the time the context record is established. Disabled by default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider installs the OpenTelemetry tracer provider used when
// composing the otelhttp handler. Only consulted when [WithOTel] is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}
