// Package ledger is the durable, append-only log of detected
// contradictions, queryable by memory id. Grounded in this codebase's
// note-versioning pattern (new facts never overwrite old rows) narrowed
// to a single append-then-status-swap lifecycle.
package ledger

import (
	"fmt"

	"github.com/kittclouds/crtengine/internal/store"
)

// Ledger wraps internal/store.Storer with the operation names and
// invariants spec.md §4.D describes.
type Ledger struct {
	db store.Storer
}

func New(db store.Storer) *Ledger {
	return &Ledger{db: db}
}

// Record appends a new OPEN ContradictionEntry under the caller-supplied
// ledgerID and returns only an error. Topology and the old/new memory ids are fixed here for the entry's
// entire lifetime (invariant 4); only Resolve ever touches it again.
func (l *Ledger) Record(ledgerID, threadID, oldID, newID string, topology store.Topology, drift, confDelta float64, summary string, at int64) error {
	status := store.StatusOpen
	entry := &store.ContradictionEntry{
		LedgerID: ledgerID, ThreadID: threadID, OldMemoryID: oldID, NewMemoryID: newID,
		Topology: topology, Status: status, Drift: drift, ConfidenceDelta: confDelta,
		Summary: summary, CreatedAt: at,
	}
	if err := l.db.InsertLedgerEntry(entry); err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	return nil
}

// HasOpenConflict is true iff there is an OPEN CONFLICT entry referencing
// memoryID. This is exactly the condition backing a Memory's derived
// reintroduced_claim field (invariant 3).
func (l *Ledger) HasOpenConflict(memoryID string) (bool, error) {
	entries, err := l.db.OpenConflictsForMemory(memoryID)
	if err != nil {
		return false, fmt.Errorf("ledger: has open conflict: %w", err)
	}
	return len(entries) > 0, nil
}

// UnresolvedForThread returns every OPEN entry for a thread.
func (l *Ledger) UnresolvedForThread(threadID string) ([]*store.ContradictionEntry, error) {
	entries, err := l.db.UnresolvedForThread(threadID)
	if err != nil {
		return nil, fmt.Errorf("ledger: unresolved for thread: %w", err)
	}
	return entries, nil
}

// Resolve transitions an entry OPEN -> a terminal status. Idempotent:
// resolving an already-resolved entry again simply overwrites status and
// resolved_at with the same or newer values, never touching topology or
// memory ids.
func (l *Ledger) Resolve(ledgerID string, status store.LedgerStatus, at int64) error {
	if status == store.StatusOpen {
		return fmt.Errorf("ledger: resolve: %q is not a terminal status", status)
	}
	if err := l.db.ResolveLedgerEntry(ledgerID, status, at); err != nil {
		return fmt.Errorf("ledger: resolve: %w", err)
	}
	return nil
}

// Overlaps counts how many of the given memory ids participate in at
// least one open conflict; used by the coherence/disclosure pathway to
// decide whether to emit an UNCERTAINTY response.
func (l *Ledger) Overlaps(memoryIDs []string) (int, error) {
	count := 0
	for _, id := range memoryIDs {
		open, err := l.HasOpenConflict(id)
		if err != nil {
			return 0, err
		}
		if open {
			count++
		}
	}
	return count, nil
}
