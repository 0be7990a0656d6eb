// Package classify labels the relationship between an old and a new fact
// on the same slot as REFINEMENT, REVISION, TEMPORAL, or CONFLICT, per
// the tie-break order REVISION > REFINEMENT > TEMPORAL > CONFLICT.
// Grounded in this codebase's pairwise conflict scorer (cosine similarity,
// significance thresholds) and its Aho-Corasick dictionary idiom for
// keyword detection.
package classify

import (
	"strings"

	"github.com/kittclouds/crtengine/internal/store"
	"github.com/kittclouds/crtengine/pkg/config"
	"github.com/kittclouds/crtengine/pkg/textmatch"
)

// Input is one (old, new) fact pair under classification.
type Input struct {
	Slot      string
	OldText   string
	NewText   string
	OldValue  string
	NewValue  string
	OldVector []float32
	NewVector []float32
}

// Result carries the topology plus the drift the ledger persists and a
// human-readable summary. confidence_delta is not part of it; the caller
// computes that from the two facts' confidences.
type Result struct {
	Topology store.Topology
	Drift    float64
	Summary  string
}

// Classifier is constructed once per process with its compiled keyword
// vocabularies; Classify is pure given those vocabularies and cfg.
type Classifier struct {
	cfg              config.Config
	revisionVocab    *textmatch.Vocabulary
	temporalVocab    *textmatch.Vocabulary
}

// New compiles the revision/temporal keyword vocabularies from cfg.
func New(cfg config.Config) (*Classifier, error) {
	rv, tv, err := newKeywordVocabularies(cfg.RevisionKeywords, cfg.TemporalKeywords)
	if err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg, revisionVocab: rv, temporalVocab: tv}, nil
}

// Classify is deterministic given the same inputs (P5): reclassifying the
// same pair always yields the same topology.
func (c *Classifier) Classify(in Input) Result {
	cos := CosineSimilarity(in.OldVector, in.NewVector)
	drift := 1 - cos

	if c.isRevision(in) {
		return Result{Topology: store.TopologyRevision, Drift: drift, Summary: summarize("revision", in)}
	}
	if c.isRefinement(in, cos) {
		return Result{Topology: store.TopologyRefinement, Drift: drift, Summary: summarize("refinement", in)}
	}
	if c.isTemporal(in) {
		return Result{Topology: store.TopologyTemporal, Drift: drift, Summary: summarize("temporal", in)}
	}
	return Result{Topology: store.TopologyConflict, Drift: drift, Summary: summarize("conflict", in)}
}

// isRevision fires when new_text contains a revision keyword adjacent to
// the old value. Exact token adjacency isn't tracked; "adjacent to
// old.value" is approximated as "old.value is itself mentioned in the
// same utterance as the keyword" — e.g. "12 years, not 8." revises a
// prior value of 8 because "8" appears alongside "not". A keyword with
// no textual trace of the old value (e.g. "Actually, I work at Amazon."
// revising a prior "Microsoft" that isn't mentioned at all) is not a
// revision of that value; it falls through to CONFLICT instead.
func (c *Classifier) isRevision(in Input) bool {
	if c.revisionVocab == nil || in.OldValue == "" {
		return false
	}
	if !c.revisionVocab.HasAny(in.NewText) {
		return false
	}
	oldV := textmatch.CanonicalizeForMatch(in.OldValue)
	return oldV != "" && strings.Contains(textmatch.CanonicalizeForMatch(in.NewText), oldV)
}

// isRefinement fires on substring containment between the two values, or
// on a mid-band cosine similarity for a hierarchical slot.
func (c *Classifier) isRefinement(in Input, cos float64) bool {
	oldV := textmatch.CanonicalizeForMatch(in.OldValue)
	newV := textmatch.CanonicalizeForMatch(in.NewValue)
	if oldV != "" && newV != "" && (strings.Contains(newV, oldV) || strings.Contains(oldV, newV)) {
		return true
	}
	if isHierarchical(in.Slot) && cos >= c.cfg.RefinementSimLow && cos < c.cfg.RefinementSimHigh {
		return true
	}
	return false
}

// isTemporal fires on a progression keyword in new_text, or on the (old,
// new) values forming a recognized seniority chain.
func (c *Classifier) isTemporal(in Input) bool {
	if c.temporalVocab != nil && c.temporalVocab.HasAny(in.NewText) {
		return true
	}
	return IsSeniorityProgression(in.Slot, in.OldValue, in.NewValue)
}

func summarize(kind string, in Input) string {
	return kind + ": " + in.Slot + " '" + in.OldValue + "' -> '" + in.NewValue + "'"
}
