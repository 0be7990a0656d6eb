package disclosure

import (
	"strings"
	"testing"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/config"
)

func mustDisclosure(t *testing.T) *Disclosure {
	t.Helper()
	d, err := New(config.Default())
	if err != nil {
		t.Fatalf("new disclosure: %v", err)
	}
	return d
}

func TestUncertaintyWhenOpenConflictOverlaps(t *testing.T) {
	d := mustDisclosure(t)
	mems := []*store.Memory{
		{Text: "I work at Microsoft.", Trust: 0.3, ReintroducedClaim: true},
		{Text: "Actually, I work at Amazon.", Trust: 0.5, ReintroducedClaim: true},
	}
	dec := d.Decide(Input{RetrievedMemories: mems, OverlapCount: 2, GatePass: false, GeneratedAnswer: "Amazon"})
	if dec.Mode != ModeUncertainty {
		t.Fatalf("expected UNCERTAINTY, got %s", dec.Mode)
	}
	if !strings.Contains(dec.Answer, "Microsoft") || !strings.Contains(dec.Answer, "Amazon") {
		t.Fatalf("expected both competing beliefs listed verbatim, got %q", dec.Answer)
	}
}

func TestBeliefAnswerGetsCaveatWhenMissing(t *testing.T) {
	d := mustDisclosure(t)
	mems := []*store.Memory{
		{Text: "Actually, I work at Amazon.", Trust: 0.5, ReintroducedClaim: true},
	}
	dec := d.Decide(Input{RetrievedMemories: mems, OverlapCount: 0, GatePass: true, GeneratedAnswer: "You work at Amazon."})
	if dec.Mode != ModeBelief {
		t.Fatalf("expected BELIEF, got %s", dec.Mode)
	}
	if !dec.CaveatUsed || !d.HasCaveat(dec.Answer) {
		t.Fatalf("expected caveat to be enforced, got %q", dec.Answer)
	}
}

func TestBeliefAnswerUntouchedWithoutReintroducedMemory(t *testing.T) {
	d := mustDisclosure(t)
	mems := []*store.Memory{{Text: "My name is Sarah.", Trust: 0.5, ReintroducedClaim: false}}
	dec := d.Decide(Input{RetrievedMemories: mems, GatePass: true, GeneratedAnswer: "Your name is Sarah."})
	if dec.Answer != "Your name is Sarah." {
		t.Fatalf("expected answer unmodified when no caveat required, got %q", dec.Answer)
	}
}

func TestErrorResponseExemptFromCaveatCheck(t *testing.T) {
	d := mustDisclosure(t)
	mems := []*store.Memory{{ReintroducedClaim: true}}
	dec := d.Decide(Input{RetrievedMemories: mems, GatePass: true, GeneratedAnswer: "I could not reach the model.", IsErrorResponse: true})
	if dec.Mode != ModeSpeech {
		t.Fatalf("expected SPEECH for an error response, got %s", dec.Mode)
	}
	if dec.Answer != "I could not reach the model." {
		t.Fatalf("error response must not be rewritten with a caveat, got %q", dec.Answer)
	}
}

func TestGateFailureYieldsSpeechMode(t *testing.T) {
	d := mustDisclosure(t)
	dec := d.Decide(Input{GatePass: false, GeneratedAnswer: "I'm not sure."})
	if dec.Mode != ModeSpeech {
		t.Fatalf("expected SPEECH on gate failure, got %s", dec.Mode)
	}
}
