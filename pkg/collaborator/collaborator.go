// Package collaborator defines the pure-function contracts the engine
// depends on but does not implement: the embedding model and the
// generative model. Both are owned externally; this package ships only
// the interfaces, a deterministic fallback embedder, and test doubles.
package collaborator

import "context"

// Embedder maps text to a fixed-dimension vector. Implementations must be
// deterministic for identical input within a model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// GenerateOptions carries per-call knobs to the Generator.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Generator maps a prompt to text. Its output is treated as untrusted:
// every orchestrator pass runs it through the Reconstruction Gates and
// Disclosure Engine before it reaches the caller.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
