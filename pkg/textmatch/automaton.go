package textmatch

import "github.com/coregx/ahocorasick"

// Vocabulary is a compiled, canonicalized Aho-Corasick automaton over a
// fixed phrase set. The same instance answers both "does this text
// contain any phrase" (HasAny) and "which phrase should I emit"
// (pattern-indexed lookups), so detection and generation never drift
// apart, per the shared-vocabulary requirement for caveat phrases and
// keyword markers.
type Vocabulary struct {
	phrases []string
	ac      *ahocorasick.Automaton
}

// Compile builds a Vocabulary from a phrase list. Phrases are
// canonicalized before compilation; empty phrases are skipped.
func Compile(phrases []string) (*Vocabulary, error) {
	v := &Vocabulary{}
	seen := make(map[string]bool)
	for _, p := range phrases {
		key := CanonicalizeForMatch(p)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		v.phrases = append(v.phrases, key)
	}
	if len(v.phrases) == 0 {
		return v, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(v.phrases).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	v.ac = automaton
	return v, nil
}

// HasAny reports whether text contains at least one compiled phrase.
func (v *Vocabulary) HasAny(text string) bool {
	if v.ac == nil {
		return false
	}
	canon := CanonicalizeForMatch(text)
	return len(v.ac.FindAllOverlapping([]byte(canon))) > 0
}

// FirstMatch returns the first compiled phrase found in text, if any, in
// its canonical form.
func (v *Vocabulary) FirstMatch(text string) (string, bool) {
	if v.ac == nil {
		return "", false
	}
	canon := CanonicalizeForMatch(text)
	matches := v.ac.FindAllOverlapping([]byte(canon))
	if len(matches) == 0 {
		return "", false
	}
	return canon[matches[0].Start:matches[0].End], true
}

// Phrases returns the compiled, canonicalized phrase list, primarily so
// a generator can pick a phrase to emit rather than merely detect one.
func (v *Vocabulary) Phrases() []string {
	return v.phrases
}
