package classify

import "strings"

// SeniorityChain is an ordered progression of values on a hierarchical
// slot, lowest rank first. A (old, new) pair that both appear in the same
// chain with new strictly senior to old classifies TEMPORAL even without
// an explicit progression keyword, unless an earlier rule already matched:
// REVISION, or REFINEMENT when one value contains the other (so
// "engineer" -> "senior engineer" is REFINEMENT).
//
// This table is a configuration asset, not derived from any single
// source: the recognized chains are enumerated by example in the
// original system but never given an exhaustive canonical list, so this
// module resolves the gap with an explicit, documented, file-local slice
// — the same flat-table idiom this codebase uses for its verb/relation
// lookup tables, without the FST dependency that idiom originally relied
// on (not available in this module's dependency set).
type SeniorityChain struct {
	Slot   string
	Levels []string
}

var seniorityChains = []SeniorityChain{
	{
		Slot: "title",
		Levels: []string{
			"intern", "associate engineer", "engineer", "software engineer",
			"senior engineer", "senior software engineer", "staff engineer",
			"principal engineer", "distinguished engineer",
		},
	},
	{
		Slot: "title",
		Levels: []string{
			"associate", "manager", "senior manager", "director",
			"senior director", "vp", "vice president", "svp", "evp", "c-level",
		},
	},
	{
		Slot: "title",
		Levels: []string{
			"analyst", "senior analyst", "lead analyst", "manager", "director",
		},
	},
}

// rank returns the (chainIndex, levelIndex) of value within the slot's
// chains, or ok=false if value is not a recognized level of any chain for
// that slot.
func rank(slot, value string) (chain int, level int, ok bool) {
	norm := strings.ToLower(strings.TrimSpace(value))
	for ci, c := range seniorityChains {
		if c.Slot != slot {
			continue
		}
		for li, lv := range c.Levels {
			if lv == norm {
				return ci, li, true
			}
		}
	}
	return 0, 0, false
}

// IsSeniorityProgression reports whether newValue is strictly senior to
// oldValue on the same recognized chain for slot.
func IsSeniorityProgression(slot, oldValue, newValue string) bool {
	oldChain, oldLevel, oldOK := rank(slot, oldValue)
	newChain, newLevel, newOK := rank(slot, newValue)
	if !oldOK || !newOK || oldChain != newChain {
		return false
	}
	return newLevel > oldLevel
}
