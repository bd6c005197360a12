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

package tracepack_test

import (
	"context"
	"testing"

	"github.com/purpleowl-io/tracepack"
)

// TestContextWithRecordRoundTrip verifies that a record bound to a context is
// the same handle RecordFromContext returns.
func TestContextWithRecordRoundTrip(t *testing.T) {
	t.Parallel()

	rec := tracepack.NewRecord(tracepack.Seed{CorrelationID: "abc-789"})
	ctx := tracepack.ContextWithRecord(context.Background(), rec)

	got, ok := tracepack.RecordFromContext(ctx)
	if !ok {
		t.Fatalf("RecordFromContext() ok = false, want true")
	}
	if got != rec {
		t.Fatalf("RecordFromContext() returned a different record handle")
	}
}

// TestRecordFromContextMissing verifies the comma-ok result on contexts that
// never saw a record.
func TestRecordFromContextMissing(t *testing.T) {
	t.Parallel()

	if rec, ok := tracepack.RecordFromContext(context.Background()); ok || rec != nil {
		t.Fatalf("RecordFromContext(Background) = (%v, %t), want (nil, false)", rec, ok)
	}
	var nilCtx context.Context
	if rec, ok := tracepack.RecordFromContext(nilCtx); ok || rec != nil {
		t.Fatalf("RecordFromContext(nil) = (%v, %t), want (nil, false)", rec, ok)
	}
}

// TestContextWithRecordNilGuards verifies that nil inputs leave the context
// unchanged rather than panicking or shadowing an existing record.
func TestContextWithRecordNilGuards(t *testing.T) {
	t.Parallel()

	base := context.Background()
	if got := tracepack.ContextWithRecord(base, nil); got != base {
		t.Fatalf("ContextWithRecord(ctx, nil) returned a derived context, want ctx unchanged")
	}

	rec := tracepack.NewRecord(tracepack.Seed{})
	bound := tracepack.ContextWithRecord(base, rec)
	rebound := tracepack.ContextWithRecord(bound, nil)
	if got, ok := tracepack.RecordFromContext(rebound); !ok || got != rec {
		t.Fatalf("binding nil record displaced the existing record")
	}
}

// TestContextWithPrincipalRoundTrip verifies principal storage and retrieval
// including the nil guards.
func TestContextWithPrincipalRoundTrip(t *testing.T) {
	t.Parallel()

	principal := map[string]any{"id": "alex_123"}
	ctx := tracepack.ContextWithPrincipal(context.Background(), principal)

	got, ok := tracepack.PrincipalFromContext(ctx)
	if !ok {
		t.Fatalf("PrincipalFromContext() ok = false, want true")
	}
	if m, isMap := got.(map[string]any); !isMap || m["id"] != "alex_123" {
		t.Fatalf("PrincipalFromContext() = %v, want the stored principal", got)
	}

	if _, ok := tracepack.PrincipalFromContext(context.Background()); ok {
		t.Fatalf("PrincipalFromContext(Background) ok = true, want false")
	}
	base := context.Background()
	if got := tracepack.ContextWithPrincipal(base, nil); got != base {
		t.Fatalf("ContextWithPrincipal(ctx, nil) returned a derived context, want ctx unchanged")
	}
}
