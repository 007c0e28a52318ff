package domain

import (
	"fmt"
	"strings"

	"github.com/haukened/zonediff/internal/dns/common/utils"
)

// RecordKey identifies a record independently of its TTL.
// Two servers hold "the same record" when their keys are equal.
// Name is canonical (lower-case, no trailing dot) and Value is the
// canonical rendering produced by the rrdata package.
type RecordKey struct {
	Name  string `json:"name" yaml:"name"`
	Type  RRType `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// NewRecordKey constructs a RecordKey with a canonical owner name and validates it.
func NewRecordKey(name string, rrtype RRType, value string) (RecordKey, error) {
	k := RecordKey{
		Name:  utils.CanonicalDNSName(name),
		Type:  rrtype,
		Value: value,
	}
	if err := k.Validate(); err != nil {
		return RecordKey{}, err
	}
	return k, nil
}

// Validate checks whether the RecordKey fields are valid.
func (k RecordKey) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	if !k.Type.IsCompared() {
		return fmt.Errorf("%w: %s", ErrTypeNotCompared, k.Type)
	}
	if k.Value == "" {
		return fmt.Errorf("record value must not be empty")
	}
	return nil
}

// Compare orders keys by name, then type mnemonic, then value.
// It returns -1, 0 or +1.
func (k RecordKey) Compare(o RecordKey) int {
	if c := strings.Compare(k.Name, o.Name); c != 0 {
		return c
	}
	if c := strings.Compare(k.Type.String(), o.Type.String()); c != 0 {
		return c
	}
	return strings.Compare(k.Value, o.Value)
}

// String renders the key as "name TYPE value".
func (k RecordKey) String() string {
	return fmt.Sprintf("%s %s %s", k.Name, k.Type, k.Value)
}

// Record is a single normalized resource record as observed on one server.
type Record struct {
	RecordKey `yaml:",inline"`
	TTL       uint32 `json:"ttl" yaml:"ttl"`
}

// NewRecord constructs a Record and validates its fields.
func NewRecord(name string, rrtype RRType, ttl uint32, value string) (Record, error) {
	key, err := NewRecordKey(name, rrtype, value)
	if err != nil {
		return Record{}, err
	}
	return Record{RecordKey: key, TTL: ttl}, nil
}

// Key returns the TTL-less identity of the record.
func (r Record) Key() RecordKey {
	return r.RecordKey
}

// String renders the record as "name TYPE ttl value".
func (r Record) String() string {
	return fmt.Sprintf("%s %s %d %s", r.Name, r.Type, r.TTL, r.Value)
}
