package extract

import "testing"

func factBySlot(facts []Fact, slot string) (Fact, bool) {
	for _, f := range facts {
		if f.Slot == slot {
			return f, true
		}
	}
	return Fact{}, false
}

func TestExtractName(t *testing.T) {
	e := NewExtractor()
	facts := e.Extract("My name is Sarah.")
	f, ok := factBySlot(facts, "name")
	if !ok {
		t.Fatalf("expected a name fact, got %+v", facts)
	}
	if f.Value != "Sarah" {
		t.Fatalf("expected value Sarah, got %q", f.Value)
	}
}

func TestExtractEmployerWithRevisionPolarity(t *testing.T) {
	e := NewExtractor()
	facts := e.Extract("Actually, I work at Amazon.")
	f, ok := factBySlot(facts, "employer")
	if !ok {
		t.Fatalf("expected an employer fact, got %+v", facts)
	}
	if f.Value != "Amazon" {
		t.Fatalf("expected value Amazon, got %q", f.Value)
	}
	found := false
	for _, p := range f.Polarity {
		if p == "actually" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'actually' polarity marker, got %+v", f.Polarity)
	}
}

func TestExtractLocationRefinement(t *testing.T) {
	e := NewExtractor()
	facts := e.Extract("I live in Bellevue, in the Seattle area.")
	f, ok := factBySlot(facts, "location")
	if !ok {
		t.Fatalf("expected a location fact, got %+v", facts)
	}
	if f.Value == "" {
		t.Fatalf("expected a non-empty location value")
	}
}

func TestExtractProgrammingYearsSequence(t *testing.T) {
	e := NewExtractor()
	cases := []struct {
		text     string
		expected string
	}{
		{"I've been programming for 8 years.", "8"},
		{"12 years, not 8.", "12"},
		{"8 years total, 12 was wrong.", "8"},
	}
	for _, c := range cases {
		facts := e.Extract(c.text)
		f, ok := factBySlot(facts, "programming_years")
		if !ok {
			t.Fatalf("%q: expected a programming_years fact, got %+v", c.text, facts)
		}
		if f.Value != c.expected {
			t.Fatalf("%q: expected value %q, got %q", c.text, c.expected, f.Value)
		}
	}
}

func TestExtractCustomSlot(t *testing.T) {
	e := NewExtractor()
	facts := e.Extract("My spirit animal is a wolf.")
	f, ok := factBySlot(facts, "custom:spirit_animal")
	if !ok {
		t.Fatalf("expected a custom:spirit_animal fact, got %+v", facts)
	}
	if f.Value != "a wolf" {
		t.Fatalf("expected value 'a wolf', got %q", f.Value)
	}
}

func TestIsQuestionNeverCreatesFacts(t *testing.T) {
	e := NewExtractor()
	if !e.IsQuestion("What's my name?") {
		t.Fatalf("expected 'What's my name?' to be a question")
	}
	if facts := e.Extract("What's my name?"); facts != nil {
		t.Fatalf("expected no facts from a question, got %+v", facts)
	}
}

func TestRedactPII(t *testing.T) {
	out := RedactPII("Reach me at sarah@example.com or 206-555-0100.")
	if out == "Reach me at sarah@example.com or 206-555-0100." {
		t.Fatalf("expected PII to be redacted")
	}
}
