package tracepack

import (
	"reflect"
	"time"
)

// cycleMarker replaces any value that recurses into itself during
// payload normalization. Logging must survive whatever data it is
// handed, so cycles become an in-band marker instead of an encoder
// error.
const cycleMarker = "[Circular]"

// maxSanitizeDepth bounds payload nesting independently of cycle
// detection.
const maxSanitizeDepth = 64

// sanitizePayload rebuilds the payload with reference cycles replaced
// by cycleMarker and leaf values normalized for JSON encoding. The
// input map is not modified; emitted lines never alias caller data.
func sanitizePayload(payload map[string]any) map[string]any {
	onPath := make(map[uintptr]struct{})
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = sanitizeValue(v, onPath, 0)
	}
	return out
}

// sanitizeValue normalizes one value. String-keyed maps and []any
// slices are rebuilt so a reappearance of an ancestor becomes
// cycleMarker; shared references that are not cycles render normally.
// Values the walker does not rebuild pass through; if one of those
// still breaks the encoder (its own cycle detection, NaN, a failing
// Marshaler), the emission path degrades to a fallback line rather
// than failing the caller.
func sanitizeValue(v any, onPath map[uintptr]struct{}, depth int) any {
	if v == nil {
		return nil
	}
	if depth >= maxSanitizeDepth {
		return cycleMarker
	}
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return val
		}
		ptr := reflect.ValueOf(val).Pointer()
		if _, ok := onPath[ptr]; ok {
			return cycleMarker
		}
		onPath[ptr] = struct{}{}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = sanitizeValue(elem, onPath, depth+1)
		}
		delete(onPath, ptr)
		return out
	case []any:
		if len(val) == 0 {
			return val
		}
		ptr := reflect.ValueOf(val).Pointer()
		if _, ok := onPath[ptr]; ok {
			return cycleMarker
		}
		onPath[ptr] = struct{}{}
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = sanitizeValue(elem, onPath, depth+1)
		}
		delete(onPath, ptr)
		return out
	case error:
		return val.Error()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return val.String()
	default:
		return v
	}
}
