package gates

import (
	"testing"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/config"
)

func TestFactualAnswerPassesWithGroundedMemory(t *testing.T) {
	g := New(config.Default())
	in := Input{
		ResponseType: ResponseFactual,
		AnswerText:   "You work at Amazon.",
		AnswerValue:  "Amazon",
		AnswerVector: []float32{1, 0, 0, 0},
		QueryVector:  []float32{1, 0, 0, 0},
		RetrievedMemories: []*store.Memory{
			{Text: "Actually, I work at Amazon.", Value: "Amazon", Vector: []float32{1, 0, 0, 0}, Confidence: 0.85},
		},
	}
	res := g.Evaluate(in)
	if !res.Pass {
		t.Fatalf("expected pass, got %+v", res)
	}
	if res.MemoryAlignment != 0.95 {
		t.Fatalf("expected substring short-circuit 0.95, got %v", res.MemoryAlignment)
	}
}

func TestBlockingContradictionForcesFail(t *testing.T) {
	g := New(config.Default())
	in := Input{
		ResponseType:      ResponseFactual,
		AnswerText:        "You work at Amazon.",
		AnswerValue:       "Amazon",
		AnswerVector:      []float32{1, 0, 0, 0},
		QueryVector:       []float32{1, 0, 0, 0},
		RetrievedMemories: []*store.Memory{{Text: "Actually, I work at Amazon.", Value: "Amazon", Vector: []float32{1, 0, 0, 0}}},
		Blocking:          true,
	}
	res := g.Evaluate(in)
	if res.Pass {
		t.Fatalf("expected fail when Blocking is set regardless of scores")
	}
}

func TestUngroundedAnswerFailsGates(t *testing.T) {
	g := New(config.Default())
	in := Input{
		ResponseType: ResponseFactual,
		AnswerText:   "You live on the moon and own a spaceship.",
		AnswerVector: []float32{0, 1, 0, 0},
		QueryVector:  []float32{0, 1, 0, 0},
		RetrievedMemories: []*store.Memory{
			{Text: "I live in Seattle.", Value: "Seattle", Vector: []float32{1, 0, 0, 0}, Confidence: 0.8},
		},
	}
	res := g.Evaluate(in)
	if res.Pass {
		t.Fatalf("expected fail for an answer unrelated to the retrieved memory, got %+v", res)
	}
}
