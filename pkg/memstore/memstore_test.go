package memstore

import (
	"testing"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/config"
	"go.uber.org/zap"
)

func newTestMemoryStore(t *testing.T) (*MemoryStore, store.Storer) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:", 4)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, config.Default(), zap.NewNop()), db
}

func TestPutAndGetRoundTrip(t *testing.T) {
	ms, _ := newTestMemoryStore(t)

	id, err := ms.Put("t1", "My name is Sarah.", "name", "Sarah", store.LaneBelief, store.SourceUser,
		[]float32{1, 0, 0, 0}, 0.8, 100)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	m, err := ms.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Value != "Sarah" || m.Trust != 0.5 {
		t.Fatalf("unexpected round-tripped memory: %+v", m)
	}
	if m.ReintroducedClaim {
		t.Fatalf("a memory with no ledger entries must not be reintroduced_claim")
	}
}

func TestReinforcementNeverDecreasesTrust(t *testing.T) {
	ms, _ := newTestMemoryStore(t)

	id1, err := ms.Put("t1", "I work at Amazon.", "employer", "Amazon", store.LaneBelief, store.SourceUser,
		[]float32{1, 0, 0, 0}, 0.8, 100)
	if err != nil {
		t.Fatalf("put 1: %v", err)
	}
	m1, _ := ms.Get(id1)

	// Near-duplicate, same slot/value, high cosine similarity -> reinforcement.
	if _, err := ms.Put("t1", "I still work at Amazon.", "employer", "Amazon", store.LaneBelief, store.SourceUser,
		[]float32{1, 0.01, 0, 0}, 0.8, 200); err != nil {
		t.Fatalf("put 2: %v", err)
	}

	after, err := ms.Get(id1)
	if err != nil {
		t.Fatalf("get after reinforcement: %v", err)
	}
	if after.Trust < m1.Trust {
		t.Fatalf("reinforcement must never decrease trust: before=%v after=%v", m1.Trust, after.Trust)
	}
	if after.Trust != 0.6 {
		t.Fatalf("expected trust 0.5+0.1=0.6, got %v", after.Trust)
	}
}

func TestEvolveTrustConflictDegradesAndRespectsFloor(t *testing.T) {
	ms, _ := newTestMemoryStore(t)

	id, err := ms.Put("t1", "I work at Microsoft.", "employer", "Microsoft", store.LaneBelief, store.SourceUser,
		[]float32{1, 0, 0, 0}, 0.8, 100)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	old, _ := ms.Get(id)

	if err := ms.EvolveTrust(old, 1.0, store.TopologyConflict, 200); err != nil {
		t.Fatalf("evolve trust: %v", err)
	}
	after, err := ms.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// trust * (1 - 0.5*1.0) = 0.5 * 0.5 = 0.25, floored to 0.3.
	if after.Trust != 0.3 {
		t.Fatalf("expected trust floored at 0.3, got %v", after.Trust)
	}
}

func TestRetrieveKZeroReturnsEmpty(t *testing.T) {
	ms, _ := newTestMemoryStore(t)
	got, err := ms.Retrieve("t1", RetrieveOptions{K: 0})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for k=0, got %+v", got)
	}
}

func TestRetrieveOrderingIsDeterministicNotInsertionOrder(t *testing.T) {
	ms, _ := newTestMemoryStore(t)

	// Insert the eventually-lower-scored memory first, to prove ranking
	// doesn't depend on insertion order (P8).
	if _, err := ms.Put("t1", "far", "", "", store.LaneBelief, store.SourceUser,
		[]float32{0, 0, 0, 1}, 0.8, 100); err != nil {
		t.Fatalf("put far: %v", err)
	}
	if _, err := ms.Put("t1", "close", "", "", store.LaneBelief, store.SourceUser,
		[]float32{1, 0, 0, 0}, 0.8, 200); err != nil {
		t.Fatalf("put close: %v", err)
	}

	got, err := ms.Retrieve("t1", RetrieveOptions{K: 2, QueryVector: []float32{1, 0, 0, 0}, Now: 300})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 2 || got[0].Text != "close" {
		t.Fatalf("expected 'close' ranked first by cosine similarity, got %+v", got)
	}
}
