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
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Level controls the minimum severity a logger emits. It keeps the
// underlying integer representation of slog.Level so tracepack levels
// slot into any slog API, while String renders the lowercase names the
// wire format uses.
type Level slog.Level

const (
	// LevelDebug emits everything, including diagnostic detail.
	LevelDebug Level = Level(slog.LevelDebug)
	// LevelInfo is the default minimum severity.
	LevelInfo Level = Level(slog.LevelInfo)
	// LevelWarn emits warnings and errors only.
	LevelWarn Level = Level(slog.LevelWarn)
	// LevelError emits errors only.
	LevelError Level = Level(slog.LevelError)
	// LevelNone disables all output.
	LevelNone Level = Level(math.MaxInt32)
)

// String returns the lowercase configuration name for l. Values that
// are not one of the named constants report the wire band they fall
// in.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelNone:
		return "none"
	default:
		return levelString(slog.Level(l))
	}
}

// Level returns l as a slog.Level. This method allows Level to satisfy
// the slog.Leveler interface, enabling its use in places like
// slog.HandlerOptions.Level and the standard slog.Logger methods.
func (l Level) Level() slog.Level {
	return slog.Level(l)
}

// ParseLevel interprets s as a level name. It accepts debug, info,
// warn (or warning), error, and none, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "none":
		return LevelNone, nil
	default:
		return LevelInfo, fmt.Errorf("tracepack: unknown level %q", s)
	}
}

// levelString maps an arbitrary slog level onto the fixed wire enum.
// The wire knows exactly four severities, so levels between two named
// ones report the band they fall in.
func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "debug"
	case l < slog.LevelWarn:
		return "info"
	case l < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}
