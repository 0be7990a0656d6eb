// Package textmatch provides the shared text-normalization and
// Aho-Corasick keyword-matching primitives used by the Classifier's
// revision/temporal keyword detection and the Disclosure Engine's caveat
// phrase detection, so both share one vocabulary-matching discipline.
// Adapted from this codebase's entity-dictionary canonicalizer, narrowed
// to keyword/phrase matching (the entity-kind/alias machinery it used for
// open-domain entity discovery has no home in this engine's closed-slot
// fact model).
package textmatch

import (
	"strings"
	"unicode"
)

// isJoiner returns true for punctuation that commonly appears inside
// multiword phrases ("I meant", "O'Brien"-style contractions).
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '‘',
		'-', '–', '—',
		'·', '.', '_', '/', '#', '&':
		return true
	default:
		return false
	}
}

func isSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || isJoiner(r) {
		return false
	}
	return true
}

// CanonicalizeForMatch folds to lowercase, preserves letters/digits/
// joiners, and collapses every other separator run to a single space.
// Used identically for both pattern compilation and text scanning so a
// multiword phrase like "I meant" or "not ... wrong" matches regardless
// of surrounding punctuation or case.
func CanonicalizeForMatch(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true

	for _, ch := range s {
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}

	result := out.String()
	if len(result) > 0 && result[len(result)-1] == ' ' {
		result = result[:len(result)-1]
	}
	return result
}
