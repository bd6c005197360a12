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

	"github.com/google/uuid"
)

// NewCorrelationID returns a fresh correlation id. It is the default
// generator used wherever an inbound request carries none.
func NewCorrelationID() string {
	return uuid.NewString()
}

// WithScope establishes a record from seed, binds it to a context
// derived from ctx, and runs fn with that context. Everything logged
// under the derived context carries the record. Use it for work that
// does not arrive through the HTTP or gRPC middleware: startup tasks,
// scheduled jobs, queue consumers building their own scope.
//
// WithScope returns fn's error. A nil fn is a no-op.
func WithScope(ctx context.Context, seed Seed, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ContextWithRecord(ctx, NewRecord(seed)))
}

// AddFields merges fields into the record bound to ctx. The last write
// per key wins, and the new values appear on every subsequent line of
// the chain, including lines logged by sibling goroutines sharing the
// record. When ctx carries no record the call is a no-op, so shared
// helpers may enrich unconditionally.
func AddFields(ctx context.Context, fields map[string]any) {
	rec, ok := RecordFromContext(ctx)
	if !ok {
		return
	}
	rec.merge(fields)
}

// Capture returns the record bound to ctx so it can outlive the
// context it was established under: hand it to a timer callback or
// queue message, then re-enter with [Restore]. The returned record is
// the live handle, so fields added later anywhere on the chain remain
// visible through it. Capture returns nil when ctx carries no record;
// restoring nil binds nothing, which round-trips to the same
// null-identity lines an unestablished chain produces.
func Capture(ctx context.Context) *Record {
	rec, _ := RecordFromContext(ctx)
	return rec
}

// Restore binds a previously captured record to a context outside the
// original chain, typically at the start of a timer callback or queue
// consumer. A nil record leaves ctx unchanged.
func Restore(ctx context.Context, rec *Record) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return ContextWithRecord(ctx, rec)
}

// Detach returns a context that keeps ctx's record, principal, and
// trace span but is not canceled when ctx is. Use it for goroutines
// that must outlive the request that spawned them; their lines keep
// the request's identity and correlation id.
func Detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
