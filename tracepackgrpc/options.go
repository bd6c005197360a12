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

package tracepackgrpc

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/purpleowl-io/tracepack"
)

// Option configures the gRPC interceptors.
type Option func(*config)

type config struct {
	metadataKey      string
	generator        func() string
	identityPath     string
	identityResolver func(context.Context) (string, bool)
	rpcFields        bool
	logCalls         bool
	includeSizes     bool
	enableOTel       bool
	tracerProvider   trace.TracerProvider
}

// defaultConfig returns the baseline configuration for the interceptors.
func defaultConfig() *config {
	return &config{
		metadataKey:  CorrelationMetadataKey,
		generator:    tracepack.NewCorrelationID,
		identityPath: tracepack.DefaultIdentityPath,
		rpcFields:    true,
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
	if strings.TrimSpace(cfg.metadataKey) == "" {
		cfg.metadataKey = CorrelationMetadataKey
	}
	if cfg.generator == nil {
		cfg.generator = tracepack.NewCorrelationID
	}
	if cfg.identityPath == "" {
		cfg.identityPath = tracepack.DefaultIdentityPath
	}
	return cfg
}

// WithCorrelationMetadataKey overrides the metadata key consulted for an
// inbound correlation id and echoed in response headers. The default is
// [CorrelationMetadataKey].
func WithCorrelationMetadataKey(key string) Option {
	return func(cfg *config) {
		cfg.metadataKey = strings.TrimSpace(key)
	}
}

// WithCorrelationIDGenerator overrides how correlation ids are minted for
// calls that arrive without one. The default is [tracepack.NewCorrelationID].
func WithCorrelationIDGenerator(fn func() string) Option {
	return func(cfg *config) {
		cfg.generator = fn
	}
}

// WithIdentityPath overrides the dotted path used to extract the caller
// identity from the context principal. The default is
// [tracepack.DefaultIdentityPath].
func WithIdentityPath(path string) Option {
	return func(cfg *config) {
		cfg.identityPath = path
	}
}

// WithIdentityResolver replaces principal-based identity resolution with a
// custom callback. The callback receives the call context after any earlier
// interceptor has run and reports the identity together with whether one was
// found. When set, [WithIdentityPath] has no effect.
func WithIdentityResolver(fn func(context.Context) (string, bool)) Option {
	return func(cfg *config) {
		cfg.identityResolver = fn
	}
}

// WithRPCFields toggles seeding the call record with rpc.service and
// rpc.method custom fields. Enabled by default.
func WithRPCFields(enabled bool) Option {
	return func(cfg *config) {
		cfg.rpcFields = enabled
	}
}

// WithCallLogging toggles emission of a completion entry for every RPC
// carrying status code and duration. Disabled by default so the interceptors
// only establish context.
func WithCallLogging(enabled bool) Option {
	return func(cfg *config) {
		cfg.logCalls = enabled
	}
}

// WithMessageSizes toggles inclusion of request and response payload sizes on
// completion entries. Only consulted when [WithCallLogging] is enabled.
func WithMessageSizes(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeSizes = enabled
	}
}

// WithOTel enables an otelgrpc stats handler in [ServerOptions] so spans
// exist by the time the call record is established. Disabled by default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider installs the OpenTelemetry tracer provider used when
// composing the otelgrpc stats handler. Only consulted when [WithOTel] is
// enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}
