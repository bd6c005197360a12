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
	"fmt"
	"reflect"
	"strings"
)

// DefaultIdentityPath is the dotted path resolved against the
// principal when no explicit path is configured. The principal is
// expected to be the authenticated user object, so the default reads
// its id field.
const DefaultIdentityPath = "id"

// ContextWithPrincipal returns a context derived from ctx that carries
// the authenticated principal. Authentication middleware calls this;
// the record-establishing middleware later resolves the identity from
// it, which is why it must run first.
//
// Passing a nil context or nil principal returns ctx unchanged.
func ContextWithPrincipal(ctx context.Context, principal any) context.Context {
	if ctx == nil || principal == nil {
		return ctx
	}
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext returns the principal bound to ctx, if any.
func PrincipalFromContext(ctx context.Context) (principal any, ok bool) {
	if ctx == nil {
		return nil, false
	}
	p := ctx.Value(principalContextKey)
	return p, p != nil
}

// ResolveIdentity walks the dotted path through principal and renders
// the leaf as the identity string. Intermediate segments traverse
// string-keyed maps, exported struct fields (matched
// case-insensitively), and pointers. A missing segment, nil
// intermediate, untraversable value, or empty result yields
// ("", false): an absent identity is a normal outcome, never an error.
func ResolveIdentity(principal any, path string) (identity string, ok bool) {
	if principal == nil {
		return "", false
	}
	if path == "" {
		path = DefaultIdentityPath
	}
	cur := principal
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return "", false
		}
		next, found := lookupSegment(cur, seg)
		if !found {
			return "", false
		}
		cur = next
	}
	return renderIdentity(cur)
}

// lookupSegment resolves one path segment against a map key or an
// exported struct field, unwrapping pointers and interfaces first.
func lookupSegment(v any, seg string) (any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		next, ok := m[seg]
		return next, ok
	case map[string]string:
		next, ok := m[seg]
		return next, ok
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, seg)
		})
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	default:
		return nil, false
	}
}

// renderIdentity coerces a resolved leaf to its string form. Only
// scalar leaves qualify; structured values cannot serve as an
// identity.
func renderIdentity(v any) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case fmt.Stringer:
		s := id.String()
		return s, s != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		s := fmt.Sprint(v)
		return s, s != ""
	default:
		return "", false
	}
}
