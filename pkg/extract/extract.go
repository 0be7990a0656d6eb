// Package extract turns a user utterance into zero or more typed
// (slot, value, confidence) facts, using a closed set of recognized slots
// plus an open custom:<key> escape hatch. Pattern-based, grounded in the
// per-slot regex-table idiom this codebase already uses for decision/plan/
// constraint/observation/claim extraction, narrowed here to closed-slot
// personal facts instead of open narrative claims.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Fact is one recognized (slot, value) pair pulled out of an utterance.
type Fact struct {
	Slot       string
	Value      string
	Confidence float64
	// Polarity markers ("not", "actually", "instead") found anywhere in the
	// utterance. The Classifier does not read them; its REVISION keywords
	// come from config.Config.RevisionKeywords.
	Polarity []string
}

// slotPattern is one recognized way of phrasing a slot's value.
type slotPattern struct {
	re         *regexp.Regexp
	confidence float64
}

// polarityMarkers are the markers reported in Fact.Polarity. They are a
// separate list from the Classifier's REVISION keywords, which are
// configured in config.Config.RevisionKeywords.
var polarityMarkers = []string{"not", "actually", "instead"}

// slotTable is the closed set of recognized slots. Each slot may have
// several patterns; the first one that matches wins, consistent with
// "at most one tuple per utterance" per slot.
var slotTable = map[string][]slotPattern{
	"name": {
		{regexp.MustCompile(`(?i)\b(?:my name is|i'?m|i am|call me)\s+([A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+)?)\b`), 0.8},
	},
	"employer": {
		{regexp.MustCompile(`(?i)\bi work (?:at|for)\s+([A-Z][\w&.\- ]*?)(?:[.!?,]|$)`), 0.85},
		{regexp.MustCompile(`(?i)\bmy employer is\s+([A-Z][\w&.\- ]*?)(?:[.!?,]|$)`), 0.85},
	},
	"title": {
		{regexp.MustCompile(`(?i)\bmy (?:job )?title is\s+([a-zA-Z][\w \-]*?)(?:[.!?,]|$)`), 0.8},
		{regexp.MustCompile(`(?i)\bi'?m an? ([a-zA-Z][\w \-]*?)(?:\s+at\s+|[.!?,]|$)`), 0.55},
	},
	"location": {
		{regexp.MustCompile(`(?i)\bi live in\s+([A-Z][\w, ]*?)(?:[.!?]|$)`), 0.85},
		{regexp.MustCompile(`(?i)\bi'?m based in\s+([A-Z][\w, ]*?)(?:[.!?]|$)`), 0.8},
		{regexp.MustCompile(`(?i)\bi'?m from\s+([A-Z][\w, ]*?)(?:[.!?]|$)`), 0.7},
	},
	"programming_years": {
		{regexp.MustCompile(`(?i)\bi'?ve been programming for\s+(\d+)\s+years?`), 0.8},
		{regexp.MustCompile(`(?i)\b(\d+)\s+years?(?: total)?\b`), 0.5},
	},
	"first_language": {
		{regexp.MustCompile(`(?i)\bmy (?:first|native) (?:programming )?language is\s+([A-Za-z+#]+)`), 0.8},
	},
	"masters_school": {
		{regexp.MustCompile(`(?i)\b(?:i got my master'?s(?: degree)? (?:from|at)|my master'?s(?: degree)? is from)\s+([A-Z][\w .&'\-]*?)(?:[.!?,]|$)`), 0.8},
	},
	"undergrad_school": {
		{regexp.MustCompile(`(?i)\b(?:i got my (?:undergrad|bachelor'?s)(?: degree)? (?:from|at)|my (?:undergrad|bachelor'?s)(?: degree)? is from)\s+([A-Z][\w .&'\-]*?)(?:[.!?,]|$)`), 0.8},
	},
	"remote_preference": {
		{regexp.MustCompile(`(?i)\bi prefer working remotely\b`), 0.8},
		{regexp.MustCompile(`(?i)\bi prefer being in the office\b`), 0.8},
		{regexp.MustCompile(`(?i)\bi (?:like|hate) working remotely\b`), 0.6},
	},
	"team_size": {
		{regexp.MustCompile(`(?i)\bmy team (?:has|is)\s+(\d+)(?:\s+people)?`), 0.8},
		{regexp.MustCompile(`(?i)\bteam size (?:is|of)\s+(\d+)`), 0.8},
	},
	"favorite_color": {
		{regexp.MustCompile(`(?i)\bmy favorite color is\s+([a-zA-Z]+)`), 0.85},
	},
}

// customSlotPattern recognizes the open "my <key> is <value>" escape
// hatch. A multi-word key is joined with underscores, and the fact is
// emitted only when that key is not one of the closed slots above.
var customSlotPattern = regexp.MustCompile(`(?i)\bmy ([a-z][a-z_ ]*?)\s+is\s+(.+?)(?:[.!?]|$)`)

var questionWords = []string{
	"what", "where", "who", "when", "why", "how", "do i", "did i", "does",
	"is it", "are you", "can you", "could you", "would you",
}

// Extractor is stateless: Extract and IsQuestion are pure functions of
// their input, per the fact extractor's determinism contract.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns at most one Fact per recognized slot, plus any
// polarity markers found anywhere in the text.
func (e *Extractor) Extract(text string) []Fact {
	if e.IsQuestion(text) {
		return nil
	}

	polarity := findPolarity(text)
	var facts []Fact
	matchedRemote := false

	// Visit slots in a fixed order so the returned facts are ordered the
	// same way on every call.
	slots := make([]string, 0, len(slotTable))
	for slot := range slotTable {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	for _, slot := range slots {
		patterns := slotTable[slot]
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			value := ""
			if len(m) > 1 {
				value = strings.TrimSpace(m[1])
			} else {
				value = normalizeRemoteValue(slot, m[0])
			}
			if slot == "remote_preference" {
				if matchedRemote {
					continue
				}
				matchedRemote = true
				value = normalizeRemoteValue(slot, m[0])
			}
			if value == "" {
				continue
			}
			facts = append(facts, Fact{Slot: slot, Value: value, Confidence: p.confidence, Polarity: polarity})
			break
		}
	}

	if custom := customSlotPattern.FindStringSubmatch(text); custom != nil {
		key := strings.ToLower(strings.Join(strings.Fields(custom[1]), "_"))
		if _, known := slotTable[key]; !known {
			facts = append(facts, Fact{
				Slot: "custom:" + key, Value: strings.TrimSpace(custom[2]),
				Confidence: 0.5, Polarity: polarity,
			})
		}
	}

	return facts
}

func normalizeRemoteValue(slot, matched string) string {
	if slot != "remote_preference" {
		return matched
	}
	lower := strings.ToLower(matched)
	if strings.Contains(lower, "office") || strings.Contains(lower, "hate") {
		return "in-office"
	}
	return "remote"
}

func findPolarity(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, marker := range polarityMarkers {
		if strings.Contains(lower, marker) {
			found = append(found, marker)
		}
	}
	return found
}

// IsQuestion distinguishes storage-triggering statements from
// retrieval-triggering questions. Questions never create facts.
func (e *Extractor) IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w+" ") || strings.HasPrefix(lower, w+"'") {
			return true
		}
	}
	return false
}
