package collaborator

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// KeywordEmbedder is the deterministic degraded-mode fallback used when the
// real Embedder collaborator times out or errors (§4.H failure semantics:
// "embedder failure degrades to keyword retrieval"). It hashes each token
// into a bucket of a fixed-size vector and L2-normalizes the result, so
// cosine similarity between two texts approximates token overlap.
type KeywordEmbedder struct {
	dim int
}

// NewKeywordEmbedder returns a fallback embedder producing vectors of the
// given dimension. dim must match whatever real Embedder the store's
// vec0 table was sized for.
func NewKeywordEmbedder(dim int) *KeywordEmbedder {
	return &KeywordEmbedder{dim: dim}
}

func (k *KeywordEmbedder) Dimension() int { return k.dim }

// Embed is pure, side-effect free, and never returns an error: there is
// nothing external to fail.
func (k *KeywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, k.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		bucket := int(h.Sum32()) % k.dim
		if bucket < 0 {
			bucket += k.dim
		}
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec, nil
}
