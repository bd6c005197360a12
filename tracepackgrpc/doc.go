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

// Package tracepackgrpc provides gRPC server interceptors that establish a
// per-call context record for tracepack-enriched logging.
//
// Each interceptor reads the inbound correlation id from call metadata
// (minting a fresh id when the key is absent), resolves the caller identity
// from the context principal, echoes the id in the response headers, and
// binds the record to the handler context. Log calls made while serving the
// RPC then carry the same userId and txId, and by default the record also
// carries rpc.service and rpc.method custom fields so every entry names the
// call it belongs to.
//
// Convenience helpers are available:
//
//   - [UnaryServerInterceptor] and [StreamServerInterceptor]
//   - [ServerOptions], which bundles both interceptors together with an
//     optional otelgrpc stats handler for easy registration.
//
// Typical usage:
//
//	server := grpc.NewServer(
//	    tracepackgrpc.ServerOptions(
//	        tracepackgrpc.WithCallLogging(true),
//	    )...,
//	)
//
// Register the interceptors after any authentication interceptor so the
// principal is already in the context when the record is seeded.
package tracepackgrpc
