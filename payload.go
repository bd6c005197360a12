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
	"log/slog"
	"time"
)

// Keys fixed by the line format. The emission path writes them last so
// no custom field can overwrite them.
const (
	timestampKey   = "ts"
	levelKey       = "level"
	identityKey    = "userId"
	correlationKey = "txId"
	messageKey     = "msg"
)

// Auxiliary keys the emission path may add. They are not protected:
// a custom field of the same name simply takes the slot.
const (
	// argsKey holds positional logging arguments that were not
	// structured fields.
	argsKey = "args"
	// logErrorKey carries the failure description on fallback lines.
	logErrorKey = "logError"
)

// isReservedKey reports whether k is one of the protected wire keys.
func isReservedKey(k string) bool {
	switch k {
	case timestampKey, levelKey, identityKey, correlationKey, messageKey:
		return true
	}
	return false
}

// setPayloadValue writes attr into m. Groups become nested maps;
// groups with an empty key are inlined into the parent, and attrs that
// resolve to nothing are elided, per the slog.Handler contract.
func setPayloadValue(m map[string]any, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		if len(members) == 0 {
			return
		}
		if attr.Key == "" {
			for _, a := range members {
				setPayloadValue(m, a)
			}
			return
		}
		child := make(map[string]any, len(members))
		for _, a := range members {
			setPayloadValue(child, a)
		}
		if len(child) == 0 {
			return
		}
		m[attr.Key] = child
		return
	}
	if attr.Key == "" {
		return
	}
	m[attr.Key] = resolveAttrValue(attr.Value)
}

// resolveAttrValue converts a resolved, non-group slog value into the
// plain Go value handed to the JSON encoder. Times render in UTC with
// nanosecond precision; durations render as their string form.
func resolveAttrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindUint64:
		return v.Uint64()
	default:
		return resolveAnyValue(v.Any())
	}
}

// resolveAnyValue normalizes values reaching the payload through
// slog.KindAny. Errors render their message; everything else passes
// through for the sanitizer and encoder to handle.
func resolveAnyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case error:
		return val.Error()
	default:
		return v
	}
}

// ensureGroupMap returns the nested map addressed by groups, creating
// intermediate maps as needed. A non-map value already present at an
// intermediate key is displaced.
func ensureGroupMap(m map[string]any, groups []string) map[string]any {
	cur := m
	for _, g := range groups {
		next, ok := cur[g].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[g] = next
		}
		cur = next
	}
	return cur
}

// pruneEmptyMaps removes group maps that ended up with no members, so
// an opened group with nothing logged under it leaves no trace on the
// wire.
func pruneEmptyMaps(m map[string]any) {
	for k, v := range m {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		pruneEmptyMaps(child)
		if len(child) == 0 {
			delete(m, k)
		}
	}
}
