package classify

import (
	"testing"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/config"
)

func mustClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(config.Default())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

func TestRevisionTakesPrecedence(t *testing.T) {
	c := mustClassifier(t)
	in := Input{
		Slot: "programming_years", OldValue: "8", NewValue: "12",
		OldText: "I've been programming for 8 years.", NewText: "12 years, not 8.",
		OldVector: []float32{1, 0, 0, 0}, NewVector: []float32{0, 1, 0, 0},
	}
	res := c.Classify(in)
	if res.Topology != store.TopologyRevision {
		t.Fatalf("expected REVISION, got %s", res.Topology)
	}
}

// TestConflictWhenKeywordPresentButOldValueUnmentioned pins down the
// seed scenario where a revision keyword appears ("Actually") but the
// old value itself is never referenced in the new text, so the pair
// falls through to CONFLICT rather than REVISION.
func TestConflictWhenKeywordPresentButOldValueUnmentioned(t *testing.T) {
	c := mustClassifier(t)
	in := Input{
		Slot: "employer", OldValue: "Microsoft", NewValue: "Amazon",
		OldText: "I work at Microsoft.", NewText: "Actually, I work at Amazon.",
		OldVector: []float32{1, 0, 0, 0}, NewVector: []float32{0, 1, 0, 0},
	}
	res := c.Classify(in)
	if res.Topology != store.TopologyConflict {
		t.Fatalf("expected CONFLICT, got %s", res.Topology)
	}
}

func TestRefinementOnSubstringContainment(t *testing.T) {
	c := mustClassifier(t)
	in := Input{
		Slot: "location", OldValue: "Seattle", NewValue: "Bellevue, Seattle area",
		OldText: "I live in Seattle.", NewText: "I live in Bellevue, in the Seattle area.",
		OldVector: []float32{1, 0, 0, 0}, NewVector: []float32{0.9, 0.1, 0, 0},
	}
	res := c.Classify(in)
	if res.Topology != store.TopologyRefinement {
		t.Fatalf("expected REFINEMENT, got %s", res.Topology)
	}
}

func TestTemporalOnSeniorityChain(t *testing.T) {
	c := mustClassifier(t)
	in := Input{
		Slot: "title", OldValue: "manager", NewValue: "director",
		OldText: "My title is manager.", NewText: "My title is director.",
		OldVector: []float32{1, 0, 0, 0}, NewVector: []float32{0, 0, 1, 0},
	}
	res := c.Classify(in)
	if res.Topology != store.TopologyTemporal {
		t.Fatalf("expected TEMPORAL, got %s", res.Topology)
	}
}

func TestConflictWhenNothingElseMatches(t *testing.T) {
	c := mustClassifier(t)
	in := Input{
		Slot: "remote_preference", OldValue: "remote", NewValue: "in-office",
		OldText: "I prefer working remotely.", NewText: "I hate working remotely, I prefer being in the office.",
		OldVector: []float32{1, 0, 0, 0}, NewVector: []float32{0, 0, 0, 1},
	}
	res := c.Classify(in)
	if res.Topology != store.TopologyConflict {
		t.Fatalf("expected CONFLICT, got %s", res.Topology)
	}
}

func TestClassificationIsIdempotent(t *testing.T) {
	c := mustClassifier(t)
	in := Input{
		Slot: "employer", OldValue: "Microsoft", NewValue: "Amazon",
		OldText: "I work at Microsoft.", NewText: "Actually, I work at Amazon.",
		OldVector: []float32{1, 0, 0, 0}, NewVector: []float32{0, 1, 0, 0},
	}
	r1 := c.Classify(in)
	r2 := c.Classify(in)
	if r1.Topology != r2.Topology || r1.Drift != r2.Drift {
		t.Fatalf("classification not idempotent: %+v vs %+v", r1, r2)
	}
}
