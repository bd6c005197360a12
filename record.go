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
	"maps"
	"sync"
)

// Seed carries the inputs used to establish a [Record]. A zero
// CorrelationID means "generate one"; a zero Identity means the caller
// could not be identified and stays absent on the wire.
type Seed struct {
	// Identity is the authenticated caller, already resolved to its
	// string form.
	Identity string
	// CorrelationID ties every line of one request chain together.
	// Leave it empty to have establishment mint a fresh id.
	CorrelationID string
	// Fields are custom fields present from the first line onward.
	Fields map[string]any
}

// Record is the per-chain context record: the identity and correlation
// id fixed at establishment, plus custom fields that accumulate as the
// chain progresses. A record travels inside a context.Context (see
// [ContextWithRecord]) and is shared by everything downstream of its
// establishment point, so a field added deep in the chain appears on
// lines logged by sibling goroutines too.
//
// Identity and correlation id are immutable after establishment.
// Custom fields are guarded internally; concurrent [AddFields] and
// logging are safe.
type Record struct {
	identity string
	txID     string

	mu     sync.RWMutex
	custom map[string]any
}

// NewRecord establishes a record from seed. When the seed carries no
// correlation id a fresh one is generated, so every record has one.
// Seed fields are copied; later mutation of the seed map does not
// affect the record.
func NewRecord(seed Seed) *Record {
	txID := seed.CorrelationID
	if txID == "" {
		txID = NewCorrelationID()
	}
	r := &Record{
		identity: seed.Identity,
		txID:     txID,
	}
	if len(seed.Fields) > 0 {
		r.custom = make(map[string]any, len(seed.Fields))
		maps.Copy(r.custom, seed.Fields)
	}
	return r
}

// Identity reports the authenticated identity established for this
// chain. ok is false when establishment could not resolve one; the
// wire then shows null.
func (r *Record) Identity() (identity string, ok bool) {
	if r == nil || r.identity == "" {
		return "", false
	}
	return r.identity, true
}

// CorrelationID returns the chain's correlation id. It is never empty
// on a record built by [NewRecord].
func (r *Record) CorrelationID() string {
	if r == nil {
		return ""
	}
	return r.txID
}

// Fields returns a snapshot of the record's custom fields. Mutating
// the returned map does not affect the record; use [AddFields] for
// that. A record with no custom fields returns nil.
func (r *Record) Fields() map[string]any {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.custom) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.custom))
	maps.Copy(out, r.custom)
	return out
}

// merge folds fields into the record. The last write per key wins.
// Names colliding with the fixed wire keys are stored as given; the
// emission path drops them from the wire, keeping mutation cheap and
// the format protected.
func (r *Record) merge(fields map[string]any) {
	if r == nil || len(fields) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.custom == nil {
		r.custom = make(map[string]any, len(fields))
	}
	maps.Copy(r.custom, fields)
}
