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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/purpleowl-io/tracepack"
)

// TestWithScopeBindsRecord verifies that the scope body observes the record
// established from the seed.
func TestWithScopeBindsRecord(t *testing.T) {
	t.Parallel()

	err := tracepack.WithScope(context.Background(), tracepack.Seed{CorrelationID: "abc-789"}, func(ctx context.Context) error {
		rec, ok := tracepack.RecordFromContext(ctx)
		if !ok {
			t.Fatalf("scope body has no record")
		}
		if got := rec.CorrelationID(); got != "abc-789" {
			t.Fatalf("scope correlation id = %q, want %q", got, "abc-789")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithScope() returned %v, want nil", err)
	}
}

// TestWithScopeReturnsBodyError verifies error passthrough and the nil-fn
// no-op.
func TestWithScopeReturnsBodyError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("scope failed")
	err := tracepack.WithScope(context.Background(), tracepack.Seed{}, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithScope() returned %v, want %v", err, wantErr)
	}

	if err := tracepack.WithScope(context.Background(), tracepack.Seed{}, nil); err != nil {
		t.Fatalf("WithScope(nil fn) returned %v, want nil", err)
	}
}

// TestWithScopeIsolatesConcurrentChains runs two scopes concurrently and
// verifies neither observes the other's fields.
func TestWithScopeIsolatesConcurrentChains(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for _, name := range []string{"chain-a", "chain-b"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = tracepack.WithScope(context.Background(), tracepack.Seed{}, func(ctx context.Context) error {
				tracepack.AddFields(ctx, map[string]any{"chain": name})
				rec, _ := tracepack.RecordFromContext(ctx)
				if got := rec.Fields()["chain"]; got != name {
					t.Errorf("chain %s observed field chain = %v", name, got)
				}
				return nil
			})
		}(name)
	}
	wg.Wait()
}

// TestAddFieldsVisibleToSiblingGoroutines verifies that a field added on one
// branch of a chain appears through every handle of the shared record.
func TestAddFieldsVisibleToSiblingGoroutines(t *testing.T) {
	t.Parallel()

	_ = tracepack.WithScope(context.Background(), tracepack.Seed{}, func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			defer close(done)
			tracepack.AddFields(ctx, map[string]any{"step": "enriched"})
		}()
		<-done

		rec, _ := tracepack.RecordFromContext(ctx)
		if got := rec.Fields()["step"]; got != "enriched" {
			t.Fatalf("sibling enrichment invisible: field step = %v, want %q", got, "enriched")
		}
		return nil
	})
}

// TestAddFieldsWithoutRecordIsNoOp verifies that enriching an unscoped
// context does nothing rather than panicking.
func TestAddFieldsWithoutRecordIsNoOp(t *testing.T) {
	t.Parallel()

	tracepack.AddFields(context.Background(), map[string]any{"k": "v"})
	if _, ok := tracepack.RecordFromContext(context.Background()); ok {
		t.Fatalf("AddFields on an unscoped context created a record")
	}
}

// TestCaptureRestoreAcrossGoroutine moves a record through a channel to a
// detached worker, mirroring the timer and queue handoff pattern.
func TestCaptureRestoreAcrossGoroutine(t *testing.T) {
	t.Parallel()

	handoff := make(chan *tracepack.Record, 1)
	_ = tracepack.WithScope(context.Background(), tracepack.Seed{CorrelationID: "abc-789"}, func(ctx context.Context) error {
		handoff <- tracepack.Capture(ctx)
		return nil
	})

	restored := tracepack.Restore(context.Background(), <-handoff)
	rec, ok := tracepack.RecordFromContext(restored)
	if !ok {
		t.Fatalf("restored context has no record")
	}
	if got := rec.CorrelationID(); got != "abc-789" {
		t.Fatalf("restored correlation id = %q, want %q", got, "abc-789")
	}
}

// TestCaptureReturnsLiveHandle verifies that fields added after capture are
// visible through the captured record.
func TestCaptureReturnsLiveHandle(t *testing.T) {
	t.Parallel()

	ctx := tracepack.ContextWithRecord(context.Background(), tracepack.NewRecord(tracepack.Seed{}))
	captured := tracepack.Capture(ctx)

	tracepack.AddFields(ctx, map[string]any{"late": true})
	if got := captured.Fields()["late"]; got != true {
		t.Fatalf("captured handle missed later enrichment: field late = %v", got)
	}
}

// TestCaptureAndRestoreWithoutRecord verifies the nil round trip: capturing
// an unscoped context yields nil and restoring nil binds nothing.
func TestCaptureAndRestoreWithoutRecord(t *testing.T) {
	t.Parallel()

	if rec := tracepack.Capture(context.Background()); rec != nil {
		t.Fatalf("Capture(Background) = %v, want nil", rec)
	}

	restored := tracepack.Restore(context.Background(), nil)
	if _, ok := tracepack.RecordFromContext(restored); ok {
		t.Fatalf("Restore(nil record) bound a record")
	}
}

// TestDetachSurvivesCancellation verifies that detached work keeps the
// record after the originating request context is canceled.
func TestDetachSurvivesCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	ctx := tracepack.ContextWithRecord(parent, tracepack.NewRecord(tracepack.Seed{CorrelationID: "abc-789"}))

	detached := tracepack.Detach(ctx)
	cancel()

	select {
	case <-detached.Done():
		t.Fatalf("detached context was canceled with its parent")
	default:
	}
	rec, ok := tracepack.RecordFromContext(detached)
	if !ok || rec.CorrelationID() != "abc-789" {
		t.Fatalf("detached context lost the record")
	}

	if deadline, ok := detached.Deadline(); ok {
		t.Fatalf("detached context kept deadline %v, want none", deadline)
	}
}

// TestDetachNilContext verifies the nil guard returns a usable context.
func TestDetachNilContext(t *testing.T) {
	t.Parallel()

	var nilCtx context.Context
	detached := tracepack.Detach(nilCtx)
	if detached == nil {
		t.Fatalf("Detach(nil) returned nil context")
	}
	select {
	case <-detached.Done():
		t.Fatalf("Detach(nil) returned a canceled context")
	case <-time.After(time.Millisecond):
	}
}

// TestNewCorrelationIDUnique verifies successive ids are non-empty and
// distinct.
func TestNewCorrelationIDUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		id := tracepack.NewCorrelationID()
		if id == "" {
			t.Fatalf("NewCorrelationID() returned empty id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("NewCorrelationID() repeated id %q", id)
		}
		seen[id] = struct{}{}
	}
}
