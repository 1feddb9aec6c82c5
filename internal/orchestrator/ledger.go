package orchestrator

import (
	"errors"
	"sync"

	"github.com/samber/lo"
)

// ErrNotFinal is returned when a pending record is offered to the ledger.
var ErrNotFinal = errors.New("only completed or failed records can enter history")

// Ledger is the concurrency-safe history of finalized jobs, newest first.
type Ledger interface {
	// Append puts a completed or failed record at the front of the history.
	Append(rec DownloadRecord) error

	// Delete removes the record with the given id. It reports whether a
	// record was removed; an unknown id is a no-op.
	Delete(id string) bool

	// Get returns a copy of the record with the given id.
	Get(id string) (DownloadRecord, bool)

	// List returns a snapshot of the history, newest first. The snapshot
	// shares no memory with the ledger.
	List() []DownloadRecord

	// Counts summarizes the history by status.
	Counts() HistoryCounts
}

// HistoryCounts is a per-status summary of the ledger.
type HistoryCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// InMemoryLedger is the Ledger used by the orchestrator. It uses a Store for
// the records; by default that is an InMemoryStore.
type InMemoryLedger struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryLedger constructs a ledger with a default in-memory store.
func NewInMemoryLedger() *InMemoryLedger {
	return NewInMemoryLedgerWithStore(NewInMemoryStore())
}

// NewInMemoryLedgerWithStore constructs a ledger that uses the given Store.
func NewInMemoryLedgerWithStore(store Store) *InMemoryLedger {
	return &InMemoryLedger{store: store}
}

// Append implements Ledger.Append.
func (l *InMemoryLedger) Append(rec DownloadRecord) error {
	if !rec.Status.IsTerminal() {
		return ErrNotFinal
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.Add(rec.clone())
	return nil
}

// Delete implements Ledger.Delete.
func (l *InMemoryLedger) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.Remove(id)
}

// Get implements Ledger.Get.
func (l *InMemoryLedger) Get(id string) (DownloadRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.store.Find(id)
	return rec.clone(), ok
}

// List implements Ledger.List.
func (l *InMemoryLedger) List() []DownloadRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return lo.Map(l.store.Newest(), func(r DownloadRecord, _ int) DownloadRecord {
		return r.clone()
	})
}

// Counts implements Ledger.Counts.
func (l *InMemoryLedger) Counts() HistoryCounts {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := l.store.Newest()
	return HistoryCounts{
		Total:     len(records),
		Completed: lo.CountBy(records, func(r DownloadRecord) bool { return r.Status == StatusCompleted }),
		Failed:    lo.CountBy(records, func(r DownloadRecord) bool { return r.Status == StatusFailed }),
	}
}
