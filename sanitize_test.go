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
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// TestSanitizePayloadMapCycle verifies a self-referential map is replaced by
// the cycle marker and still encodes.
func TestSanitizePayloadMapCycle(t *testing.T) {
	t.Parallel()

	loop := map[string]any{"name": "loop"}
	loop["self"] = loop
	out := sanitizePayload(map[string]any{"data": loop})

	data, ok := out["data"].(map[string]any)
	if !ok {
		t.Fatalf("sanitized data = %T, want map", out["data"])
	}
	if data["self"] != cycleMarker {
		t.Fatalf("data.self = %v, want %q", data["self"], cycleMarker)
	}
	if data["name"] != "loop" {
		t.Fatalf("data.name = %v, want %q", data["name"], "loop")
	}
	if _, err := json.Marshal(out); err != nil {
		t.Fatalf("sanitized payload does not encode: %v", err)
	}
}

// TestSanitizePayloadSliceCycle verifies a slice containing itself is cut at
// the marker.
func TestSanitizePayloadSliceCycle(t *testing.T) {
	t.Parallel()

	loop := make([]any, 2)
	loop[0] = "head"
	loop[1] = loop
	out := sanitizePayload(map[string]any{"list": loop})

	list, ok := out["list"].([]any)
	if !ok {
		t.Fatalf("sanitized list = %T, want slice", out["list"])
	}
	if list[0] != "head" {
		t.Fatalf("list[0] = %v, want %q", list[0], "head")
	}
	if list[1] != cycleMarker {
		t.Fatalf("list[1] = %v, want %q", list[1], cycleMarker)
	}
}

// TestSanitizePayloadIndirectCycle verifies cycles through mixed map and
// slice hops are caught.
func TestSanitizePayloadIndirectCycle(t *testing.T) {
	t.Parallel()

	inner := map[string]any{}
	outer := map[string]any{"inner": []any{inner}}
	inner["outer"] = outer

	out := sanitizePayload(map[string]any{"root": outer})
	root := out["root"].(map[string]any)
	hops := root["inner"].([]any)
	leaf := hops[0].(map[string]any)
	if leaf["outer"] != cycleMarker {
		t.Fatalf("indirect cycle rendered %v, want %q", leaf["outer"], cycleMarker)
	}
}

// TestSanitizePayloadSharedBranch verifies a DAG, where one map appears
// under two keys, renders fully in both places.
func TestSanitizePayloadSharedBranch(t *testing.T) {
	t.Parallel()

	shared := map[string]any{"kind": "shared"}
	out := sanitizePayload(map[string]any{"a": shared, "b": shared})

	for _, key := range []string{"a", "b"} {
		branch, ok := out[key].(map[string]any)
		if !ok || branch["kind"] != "shared" {
			t.Fatalf("branch %s = %v, want the shared map rendered", key, out[key])
		}
	}
}

// TestSanitizePayloadDepthLimit verifies runaway nesting stops at the marker
// instead of overflowing the stack.
func TestSanitizePayloadDepthLimit(t *testing.T) {
	t.Parallel()

	leaf := map[string]any{"v": "bottom"}
	cur := leaf
	for i := 0; i < maxSanitizeDepth+8; i++ {
		cur = map[string]any{"next": cur}
	}

	out := sanitizePayload(map[string]any{"deep": cur})

	depth := 0
	node := out["deep"]
	for {
		m, ok := node.(map[string]any)
		if !ok {
			break
		}
		node = m["next"]
		depth++
		if depth > maxSanitizeDepth+16 {
			t.Fatalf("no truncation after %d levels", depth)
		}
	}
	if node != cycleMarker {
		t.Fatalf("deep nesting terminated with %v, want %q", node, cycleMarker)
	}
}

// TestSanitizePayloadLeavesInputUntouched verifies sanitization builds a new
// tree and never writes markers into the caller's data.
func TestSanitizePayloadLeavesInputUntouched(t *testing.T) {
	t.Parallel()

	loop := map[string]any{}
	loop["self"] = loop
	payload := map[string]any{"data": loop, "plain": "value"}

	_ = sanitizePayload(payload)

	inner, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("input data was replaced with %T", payload["data"])
	}
	if self, ok := inner["self"].(map[string]any); !ok || len(self) != 1 {
		t.Fatalf("input cycle was rewritten to %v", inner["self"])
	}
	if payload["plain"] != "value" {
		t.Fatalf("input plain = %v, want %q", payload["plain"], "value")
	}
}

// TestSanitizeValueNormalizesLeaves verifies error, time, and duration
// leaves take their wire forms.
func TestSanitizeValueNormalizesLeaves(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2026, time.March, 14, 9, 26, 53, 589793238, time.FixedZone("CET", 3600))
	out := sanitizePayload(map[string]any{
		"err":  errors.New("boom"),
		"when": stamp,
		"took": 1500 * time.Millisecond,
	})

	if out["err"] != "boom" {
		t.Fatalf("err = %v, want %q", out["err"], "boom")
	}
	if out["when"] != "2026-03-14T08:26:53.589793238Z" {
		t.Fatalf("when = %v, want UTC RFC3339Nano rendering", out["when"])
	}
	if out["took"] != "1.5s" {
		t.Fatalf("took = %v, want %q", out["took"], "1.5s")
	}
}

// TestSanitizePayloadPassesScalars verifies ordinary values flow through
// unchanged.
func TestSanitizePayloadPassesScalars(t *testing.T) {
	t.Parallel()

	out := sanitizePayload(map[string]any{
		"s": "text",
		"i": 42,
		"f": 4.5,
		"b": true,
		"n": nil,
	})
	if out["s"] != "text" || out["i"] != 42 || out["f"] != 4.5 || out["b"] != true || out["n"] != nil {
		t.Fatalf("scalars were altered: %v", out)
	}
}
