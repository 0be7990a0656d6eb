package collaborator

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestKeywordEmbedderDeterministic(t *testing.T) {
	e := NewKeywordEmbedder(64)
	v1, err := e.Embed(context.Background(), "I work at Amazon")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	v2, err := e.Embed(context.Background(), "I work at Amazon")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected deterministic output, differed at index %d", i)
		}
	}
}

func TestKeywordEmbedderSharedTokensAreCloser(t *testing.T) {
	e := NewKeywordEmbedder(64)
	base, _ := e.Embed(context.Background(), "I work at Amazon")
	similar, _ := e.Embed(context.Background(), "I work at Amazon now")
	different, _ := e.Embed(context.Background(), "The weather is nice today")

	if cosine(base, similar) <= cosine(base, different) {
		t.Fatalf("expected shared-token text to score closer: sim=%v diff=%v",
			cosine(base, similar), cosine(base, different))
	}
}
