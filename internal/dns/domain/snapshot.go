package domain

import (
	"maps"
	"slices"
	"time"
)

// Snapshot is the set of records one nameserver returned for one zone,
// keyed by RecordKey. A Snapshot is immutable once built; use a
// SnapshotBuilder to assemble one. A nil *Snapshot behaves as an empty one.
type Snapshot struct {
	zone     string
	server   string
	takenAt  time.Time
	entries  map[RecordKey]uint32
	failures []ProbeFailure
}

// ProbeFailure records a (name, type) probe that gave up and was treated as
// "no data" while building a snapshot.
type ProbeFailure struct {
	Name   string `json:"name" yaml:"name"`
	Type   RRType `json:"type" yaml:"type"`
	Server string `json:"server" yaml:"server"`
	Reason string `json:"reason" yaml:"reason"`
}

// Zone returns the zone apex the snapshot was taken for.
func (s *Snapshot) Zone() string {
	if s == nil {
		return ""
	}
	return s.zone
}

// Server returns the nameserver address the snapshot was taken from.
func (s *Snapshot) Server() string {
	if s == nil {
		return ""
	}
	return s.server
}

// TakenAt returns the time the snapshot was completed.
func (s *Snapshot) TakenAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.takenAt
}

// Len returns the number of distinct record keys in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// TTL returns the TTL stored for key and whether the key is present.
func (s *Snapshot) TTL(key RecordKey) (uint32, bool) {
	if s == nil {
		return 0, false
	}
	ttl, ok := s.entries[key]
	return ttl, ok
}

// Keys returns all record keys sorted by (name, type, value).
func (s *Snapshot) Keys() []RecordKey {
	if s == nil {
		return nil
	}
	keys := slices.Collect(maps.Keys(s.entries))
	slices.SortFunc(keys, RecordKey.Compare)
	return keys
}

// Records returns all records sorted by (name, type, value).
func (s *Snapshot) Records() []Record {
	keys := s.Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, Record{RecordKey: k, TTL: s.entries[k]})
	}
	return out
}

// Failures returns the probes that were degraded to "no data", in probe order.
func (s *Snapshot) Failures() []ProbeFailure {
	if s == nil {
		return nil
	}
	return slices.Clone(s.failures)
}

// SnapshotBuilder accumulates records for a Snapshot.
// It is not safe for concurrent use.
type SnapshotBuilder struct {
	zone     string
	server   string
	entries  map[RecordKey]uint32
	failures []ProbeFailure
}

// NewSnapshotBuilder returns a builder for a snapshot of zone as served by server.
func NewSnapshotBuilder(zone, server string) *SnapshotBuilder {
	return &SnapshotBuilder{
		zone:    zone,
		server:  server,
		entries: make(map[RecordKey]uint32),
	}
}

// Add inserts a record, replacing the TTL of an existing entry with the same key.
// Records of types outside ComparedTypes (NS in particular) are dropped and
// Add reports false.
func (b *SnapshotBuilder) Add(r Record) bool {
	if !r.Type.IsCompared() {
		return false
	}
	b.entries[r.Key()] = r.TTL
	return true
}

// AddFailure notes a probe that was treated as absent.
func (b *SnapshotBuilder) AddFailure(f ProbeFailure) {
	b.failures = append(b.failures, f)
}

// Len returns the number of distinct keys added so far.
func (b *SnapshotBuilder) Len() int {
	return len(b.entries)
}

// Build returns an immutable Snapshot of the records added so far.
// The builder may keep being used; later additions do not affect the
// returned Snapshot.
func (b *SnapshotBuilder) Build(takenAt time.Time) *Snapshot {
	return &Snapshot{
		zone:     b.zone,
		server:   b.server,
		takenAt:  takenAt,
		entries:  maps.Clone(b.entries),
		failures: slices.Clone(b.failures),
	}
}

// NewSnapshot builds a snapshot directly from a list of records.
func NewSnapshot(zone, server string, takenAt time.Time, records ...Record) *Snapshot {
	b := NewSnapshotBuilder(zone, server)
	for _, r := range records {
		b.Add(r)
	}
	return b.Build(takenAt)
}
