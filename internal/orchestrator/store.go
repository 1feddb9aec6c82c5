package orchestrator

import (
	"slices"

	"github.com/samber/lo"
)

// Store is the persistence abstraction for finalized records.
// Implementations need not be safe for concurrent use; Ledger serializes
// access.
type Store interface {
	Add(rec DownloadRecord)
	Remove(id string) bool
	Find(id string) (DownloadRecord, bool)
	// Newest returns all records, most recently added first.
	Newest() []DownloadRecord
}

// InMemoryStore keeps records in insertion order so adding is an amortized
// O(1) append; Newest reverses on read.
type InMemoryStore struct {
	records []DownloadRecord
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Add implements Store.Add.
func (s *InMemoryStore) Add(rec DownloadRecord) {
	s.records = append(s.records, rec)
}

// Remove implements Store.Remove.
func (s *InMemoryStore) Remove(id string) bool {
	_, i, ok := lo.FindIndexOf(s.records, func(r DownloadRecord) bool { return r.ID == id })
	if !ok {
		return false
	}
	s.records = slices.Delete(s.records, i, i+1)
	return true
}

// Find implements Store.Find.
func (s *InMemoryStore) Find(id string) (DownloadRecord, bool) {
	return lo.Find(s.records, func(r DownloadRecord) bool { return r.ID == id })
}

// Newest implements Store.Newest.
func (s *InMemoryStore) Newest() []DownloadRecord {
	out := make([]DownloadRecord, len(s.records))
	copy(out, s.records)
	slices.Reverse(out)
	return out
}
