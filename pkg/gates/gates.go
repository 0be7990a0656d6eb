// Package gates implements the Reconstruction Gates: three scalar checks
// over a candidate answer (intent_alignment, memory_alignment, grounding)
// decided pass/fail against per-response-type thresholds. Grounded in this
// codebase's validator-style threshold gate shape and its stopwords usage
// for token-level filtering.
package gates

import (
	"strings"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/classify"
	"github.com/kittclouds/crtengine/pkg/config"
	"github.com/kittclouds/crtengine/pkg/textmatch"
	"github.com/orsinium-labs/stopwords"
)

// ResponseType is the answer classification the thresholds are chosen
// for.
type ResponseType string

const (
	ResponseFactual        ResponseType = "factual"
	ResponseExplanatory    ResponseType = "explanatory"
	ResponseConversational ResponseType = "conversational"
)

// groundingWeights mix memory coverage, the complement of hallucination
// risk, and extraction quality into the single grounding scalar. Their
// relative proportions are not specified by the source material beyond
// "weighted mix"; these values favor memory coverage as the dominant
// signal since it is the most directly verifiable of the three.
const (
	weightCoverage     = 0.5
	weightAntiHallucin = 0.3
	weightExtraction   = 0.2
)

// Input is everything the gates need to score one candidate answer.
type Input struct {
	ResponseType      ResponseType
	AnswerText        string
	AnswerValue       string // substring short-circuit target, if any
	AnswerVector      []float32
	QueryVector       []float32
	RetrievedMemories []*store.Memory
	// Blocking is true when an unresolved CONFLICT topology overlaps the
	// retrieved set; it forces a fail regardless of scores.
	Blocking bool
}

// Result carries the three scalars plus the pass/fail decision.
type Result struct {
	IntentAlignment float64
	MemoryAlignment float64
	Grounding       float64
	Pass            bool
	Reason          string
}

// Gates is constructed once with its stopword checker.
type Gates struct {
	cfg       config.Config
	stopwords *stopwords.Stopwords
}

func New(cfg config.Config) *Gates {
	return &Gates{cfg: cfg, stopwords: stopwords.MustGet("en")}
}

// Evaluate scores in.AnswerText and decides pass/fail.
func (g *Gates) Evaluate(in Input) Result {
	intent := classify.CosineSimilarity(in.QueryVector, in.AnswerVector)
	memory := g.memoryAlignment(in)
	grounding := g.grounding(in)

	res := Result{IntentAlignment: intent, MemoryAlignment: memory, Grounding: grounding}

	if in.Blocking {
		res.Pass = false
		res.Reason = "blocking contradiction forces fail"
		return res
	}

	thresholds := g.cfg.GateThresholdsFor(string(in.ResponseType))
	if intent < thresholds.Intent {
		res.Reason = "intent_alignment below threshold"
		return res
	}
	if memory < thresholds.Memory {
		res.Reason = "memory_alignment below threshold"
		return res
	}
	if in.ResponseType != ResponseConversational && grounding < thresholds.Grounding {
		res.Reason = "grounding below threshold"
		return res
	}

	res.Pass = true
	return res
}

func (g *Gates) memoryAlignment(in Input) float64 {
	if in.AnswerValue != "" {
		canonAnswer := textmatch.CanonicalizeForMatch(in.AnswerValue)
		for _, m := range in.RetrievedMemories {
			if canonAnswer != "" && strings.Contains(textmatch.CanonicalizeForMatch(m.Value), canonAnswer) {
				return 0.95
			}
		}
	}

	var best float64
	for _, m := range in.RetrievedMemories {
		if sim := classify.CosineSimilarity(in.AnswerVector, m.Vector); sim > best {
			best = sim
		}
	}
	return best
}

func (g *Gates) grounding(in Input) float64 {
	tokens := tokenize(in.AnswerText)
	if len(tokens) == 0 {
		return 0
	}

	memoryText := make(map[string]bool)
	var confidenceSum float64
	var confidenceCount int
	for _, m := range in.RetrievedMemories {
		for _, t := range tokenize(m.Text) {
			memoryText[t] = true
		}
		for _, t := range tokenize(m.Value) {
			memoryText[t] = true
		}
		if m.Confidence > 0 {
			confidenceSum += m.Confidence
			confidenceCount++
		}
	}

	var contentTokens, covered, unknown int
	for _, tok := range tokens {
		if g.stopwords.Contains(tok) {
			continue
		}
		contentTokens++
		if memoryText[tok] {
			covered++
		} else {
			unknown++
		}
	}

	coverage := 1.0
	hallucinationRisk := 0.0
	if contentTokens > 0 {
		coverage = float64(covered) / float64(contentTokens)
		hallucinationRisk = float64(unknown) / float64(contentTokens)
	}

	extractionQuality := 1.0
	if confidenceCount > 0 {
		extractionQuality = confidenceSum / float64(confidenceCount)
	}

	return weightCoverage*coverage + weightAntiHallucin*(1-hallucinationRisk) + weightExtraction*extractionQuality
}

func tokenize(text string) []string {
	canon := textmatch.CanonicalizeForMatch(text)
	if canon == "" {
		return nil
	}
	return strings.Fields(canon)
}
