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
	"io"
	"os"
	"sync"
)

// SwitchableWriter is an io.WriteCloser whose destination can be
// swapped while writes are in flight. The file sink wraps its handle
// in one so [Handler.ReopenLogFile] can redirect output to a fresh
// file without tearing the handler down.
type SwitchableWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSwitchableWriter returns a SwitchableWriter initially writing to
// w. A nil w discards writes until SetWriter installs a destination.
func NewSwitchableWriter(w io.Writer) *SwitchableWriter {
	if w == nil {
		w = io.Discard
	}
	return &SwitchableWriter{w: w}
}

// Write forwards p to the current destination. Each call holds the
// writer lock for the whole write, so lines from concurrent loggers
// never interleave.
func (s *SwitchableWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return 0, os.ErrClosed
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("tracepack: switchable write: %w", err)
	}
	return n, nil
}

// SetWriter atomically replaces the destination. The previous writer
// is not closed; its owner remains responsible for it. A nil w
// discards subsequent writes.
func (s *SwitchableWriter) SetWriter(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

// GetCurrentWriter returns the active destination.
func (s *SwitchableWriter) GetCurrentWriter() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w
}

// Close redirects subsequent writes to io.Discard. It does not close
// the previous destination; the owner of that writer closes it.
func (s *SwitchableWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = io.Discard
	return nil
}

var _ io.WriteCloser = (*SwitchableWriter)(nil)
