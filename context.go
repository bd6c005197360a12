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

import "context"

// contextKey is an unexported type for context keys defined by this
// package, preventing collisions with keys from other packages.
type contextKey int

const (
	// recordContextKey carries the active *Record.
	recordContextKey contextKey = iota
	// principalContextKey carries the authenticated principal deposited
	// by authentication middleware.
	principalContextKey
)

// ContextWithRecord returns a context derived from ctx that carries
// rec. Everything logged under the returned context is enriched with
// the record's identity, correlation id, and custom fields.
//
// Passing a nil context or nil record returns ctx unchanged, so
// callers do not need their own guards.
func ContextWithRecord(ctx context.Context, rec *Record) context.Context {
	if ctx == nil || rec == nil {
		return ctx
	}
	return context.WithValue(ctx, recordContextKey, rec)
}

// RecordFromContext returns the record bound to ctx. ok is false when
// ctx carries none; logging still works then, with null identity and
// correlation on the wire.
func RecordFromContext(ctx context.Context) (rec *Record, ok bool) {
	if ctx == nil {
		return nil, false
	}
	rec, ok = ctx.Value(recordContextKey).(*Record)
	return rec, ok && rec != nil
}
