package ledger

import (
	"testing"

	"github.com/kittclouds/crtengine/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:", 4)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func TestRecordAndHasOpenConflict(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.Record("l1", "t1", "a", "b", store.TopologyConflict, 0.8, -0.2, "employer changed", 10); err != nil {
		t.Fatalf("record: %v", err)
	}

	open, err := l.HasOpenConflict("a")
	if err != nil {
		t.Fatalf("has open conflict: %v", err)
	}
	if !open {
		t.Fatalf("expected memory 'a' to have an open conflict")
	}

	open, err = l.HasOpenConflict("c")
	if err != nil {
		t.Fatalf("has open conflict: %v", err)
	}
	if open {
		t.Fatalf("memory 'c' was never referenced, should have no open conflict")
	}
}

func TestNonConflictTopologyNeverOpensReintroduction(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.Record("l1", "t1", "a", "b", store.TopologyRefinement, 0.1, 0, "refinement", 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	open, err := l.HasOpenConflict("a")
	if err != nil {
		t.Fatalf("has open conflict: %v", err)
	}
	if open {
		t.Fatalf("REFINEMENT must not set reintroduced_claim")
	}
}

func TestResolveIsIdempotentAndPreservesTopology(t *testing.T) {
	l, db := newTestLedger(t)

	if err := l.Record("l1", "t1", "a", "b", store.TopologyConflict, 0.8, -0.2, "x", 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Resolve("l1", store.StatusResolvedByUser, 20); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := l.Resolve("l1", store.StatusResolvedByUser, 25); err != nil {
		t.Fatalf("idempotent resolve: %v", err)
	}

	entry, err := db.GetLedgerEntry("l1")
	if err != nil {
		t.Fatalf("get ledger entry: %v", err)
	}
	if entry.Topology != store.TopologyConflict || entry.OldMemoryID != "a" || entry.NewMemoryID != "b" {
		t.Fatalf("resolve must not mutate topology or memory ids: %+v", entry)
	}

	open, err := l.HasOpenConflict("a")
	if err != nil {
		t.Fatalf("has open conflict: %v", err)
	}
	if open {
		t.Fatalf("expected no open conflict after resolution")
	}
}

func TestOverlapsCountsOnlyOpenConflicts(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.Record("l1", "t1", "a", "b", store.TopologyConflict, 0.8, -0.2, "x", 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record("l2", "t1", "c", "d", store.TopologyRefinement, 0.1, 0, "y", 11); err != nil {
		t.Fatalf("record: %v", err)
	}

	n, err := l.Overlaps([]string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("overlaps: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 overlapping memories (a and b), got %d", n)
	}
}
