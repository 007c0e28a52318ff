// Package diff classifies the differences between two zone snapshots.
package diff

import (
	"github.com/haukened/zonediff/internal/dns/domain"
)

// Diff compares the current server's snapshot against the candidate's.
// A key only on current is Missing, a key only on candidate is Extra, and a
// key on both with different TTLs is a TTL mismatch. Every collection is
// sorted by (name, type, value). Nil snapshots are treated as empty.
func Diff(current, candidate *domain.Snapshot) domain.DiffResult {
	var res domain.DiffResult

	// Keys() is sorted, so appending in iteration order keeps each collection sorted.
	for _, key := range current.Keys() {
		curTTL, _ := current.TTL(key)
		candTTL, ok := candidate.TTL(key)
		switch {
		case !ok:
			res.Missing = append(res.Missing, domain.Record{RecordKey: key, TTL: curTTL})
		case curTTL != candTTL:
			res.TTLMismatches = append(res.TTLMismatches, domain.TTLMismatch{
				Key:          key,
				CurrentTTL:   curTTL,
				CandidateTTL: candTTL,
			})
		}
	}
	for _, key := range candidate.Keys() {
		if _, ok := current.TTL(key); ok {
			continue
		}
		candTTL, _ := candidate.TTL(key)
		res.Extra = append(res.Extra, domain.Record{RecordKey: key, TTL: candTTL})
	}
	return res
}
