// Package disclosure selects the response mode (UNCERTAINTY / BELIEF /
// SPEECH) before generation and enforces the caveat invariant: any BELIEF
// answer that used a reintroduced memory must contain a caveat phrase.
// The caveat vocabulary is a single Aho-Corasick automaton shared between
// detection and generation, per this codebase's dictionary idiom.
package disclosure

import (
	"fmt"
	"strings"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/config"
	"github.com/kittclouds/crtengine/pkg/textmatch"
)

// Mode is the selected response mode.
type Mode string

const (
	ModeUncertainty Mode = "UNCERTAINTY"
	ModeBelief      Mode = "BELIEF"
	ModeSpeech      Mode = "SPEECH"
)

// Disclosure holds the compiled caveat vocabulary.
type Disclosure struct {
	caveats *textmatch.Vocabulary
}

func New(cfg config.Config) (*Disclosure, error) {
	v, err := textmatch.Compile(cfg.CaveatPhrases)
	if err != nil {
		return nil, fmt.Errorf("disclosure: compile caveat vocabulary: %w", err)
	}
	return &Disclosure{caveats: v}, nil
}

// HasCaveat reports whether text already contains a recognized caveat
// phrase.
func (d *Disclosure) HasCaveat(text string) bool {
	return d.caveats.HasAny(text)
}

// PickCaveat returns a caveat phrase to prepend when the generator's
// answer omitted one, drawn from the same vocabulary HasCaveat checks
// against.
func (d *Disclosure) PickCaveat() string {
	phrases := d.caveats.Phrases()
	if len(phrases) == 0 {
		return "though I have conflicting records"
	}
	return phrases[0]
}

// Decision carries the selected mode plus the final answer text, with
// any required caveat wrapping already applied.
type Decision struct {
	Mode       Mode
	Answer     string
	CaveatUsed bool
}

// Input bundles everything disclosure needs to pick a mode and, for
// BELIEF, enforce the caveat invariant.
type Input struct {
	RetrievedMemories []*store.Memory
	OverlapCount      int
	GatePass          bool
	GeneratedAnswer   string
	// IsErrorResponse marks a generator-failure response, which is exempt
	// from the caveat check but must stay clearly marked as an error.
	IsErrorResponse bool
}

// hasConflictTopology reports whether any retrieved memory is currently
// reintroduced_claim = true, i.e. participates in an open CONFLICT.
func hasConflictTopology(memories []*store.Memory) bool {
	for _, m := range memories {
		if m.ReintroducedClaim {
			return true
		}
	}
	return false
}

// Decide selects a mode and, for BELIEF, enforces that the final answer
// carries a caveat whenever a used memory is reintroduced_claim = true.
func (d *Disclosure) Decide(in Input) Decision {
	if in.IsErrorResponse {
		return Decision{Mode: ModeSpeech, Answer: in.GeneratedAnswer, CaveatUsed: false}
	}

	if in.OverlapCount > 0 && hasConflictTopology(in.RetrievedMemories) {
		return Decision{Mode: ModeUncertainty, Answer: uncertaintyTemplate(in.RetrievedMemories)}
	}

	if !in.GatePass {
		return Decision{Mode: ModeSpeech, Answer: in.GeneratedAnswer}
	}

	answer := in.GeneratedAnswer
	caveatUsed := d.HasCaveat(answer)
	if hasConflictTopology(in.RetrievedMemories) && !caveatUsed {
		answer = d.PickCaveat() + ": " + answer
		caveatUsed = true
	}
	return Decision{Mode: ModeBelief, Answer: answer, CaveatUsed: caveatUsed}
}

// uncertaintyTemplate is the deterministic template that lists competing
// beliefs verbatim with their trust values and never picks a winner.
func uncertaintyTemplate(memories []*store.Memory) string {
	var sb strings.Builder
	sb.WriteString("I have conflicting memories and won't guess which is current:")
	for _, m := range memories {
		if !m.ReintroducedClaim {
			continue
		}
		fmt.Fprintf(&sb, "\n- %q (trust %.2f)", m.Text, m.Trust)
	}
	sb.WriteString("\nCould you tell me which is correct?")
	return sb.String()
}
