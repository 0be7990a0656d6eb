package classify

import "github.com/kittclouds/crtengine/pkg/textmatch"

// hierarchicalSlots lists slots where one value naturally contains
// another (e.g. a city within a region), making them eligible for the
// REFINEMENT similarity-band rule even without a substring match.
var hierarchicalSlots = map[string]bool{
	"location": true,
	"title":    true,
}

func isHierarchical(slot string) bool {
	return hierarchicalSlots[slot]
}

// newKeywordVocabularies compiles the revision/temporal keyword lists
// from config into shared Aho-Corasick automatons.
func newKeywordVocabularies(revision, temporal []string) (*textmatch.Vocabulary, *textmatch.Vocabulary, error) {
	rv, err := textmatch.Compile(revision)
	if err != nil {
		return nil, nil, err
	}
	tv, err := textmatch.Compile(temporal)
	if err != nil {
		return nil, nil, err
	}
	return rv, tv, nil
}
