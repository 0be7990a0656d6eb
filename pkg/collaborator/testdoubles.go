package collaborator

import "context"

// StaticGenerator is a test double that always returns a fixed answer, or
// an error if Err is set. Used by orchestrator tests to exercise gate and
// disclosure behavior deterministically.
type StaticGenerator struct {
	Answer string
	Err    error
}

func (g *StaticGenerator) Generate(_ context.Context, _ string, _ GenerateOptions) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	return g.Answer, nil
}

// FuncGenerator adapts a plain function to Generator, for tests that need
// the prompt text to shape the response.
type FuncGenerator struct {
	Fn func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

func (g *FuncGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return g.Fn(ctx, prompt, opts)
}
