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
	"testing"
)

// TestLevelString covers the named constants and the banding of in-between
// slog levels.
func TestLevelString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelNone, "none"},
		{Level(slog.LevelDebug - 4), "debug"},
		{Level(slog.LevelInfo + 1), "info"},
		{Level(slog.LevelWarn + 2), "warn"},
		{Level(slog.LevelError + 4), "error"},
	}
	for _, tc := range tests {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(tc.level), got, tc.want)
		}
	}
}

// TestLevelStringBands pins the wire banding for arbitrary handler levels.
func TestLevelStringBands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo - 1, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn - 1, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError - 1, "warn"},
		{slog.LevelError, "error"},
		{slog.LevelError + 8, "error"},
	}
	for _, tc := range tests {
		if got := levelString(tc.level); got != tc.want {
			t.Errorf("levelString(%d) = %q, want %q", int(tc.level), got, tc.want)
		}
	}
}

// TestParseLevel covers accepted spellings, normalization, and rejection.
func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"none", LevelNone, false},
		{"  INFO  ", LevelInfo, false},
		{"Error", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.input)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %t", tc.input, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

// TestLevelSatisfiesLeveler verifies Level plugs into slog APIs expecting a
// Leveler.
func TestLevelSatisfiesLeveler(t *testing.T) {
	t.Parallel()

	var leveler slog.Leveler = LevelWarn
	if got := leveler.Level(); got != slog.LevelWarn {
		t.Fatalf("LevelWarn.Level() = %v, want %v", got, slog.LevelWarn)
	}
}

// TestLevelNoneAboveEverything verifies the sentinel gates out even error
// events.
func TestLevelNoneAboveEverything(t *testing.T) {
	t.Parallel()

	if LevelNone.Level() <= slog.LevelError {
		t.Fatalf("LevelNone = %d, want above %d", LevelNone.Level(), slog.LevelError)
	}
}
