package copywriting

import "context"

// Generator produces text for a prompt. Implementations live in
// internal/infra/generator.
type Generator interface {
	// Generate returns the completion for req. Errors wrapping
	// ErrGeneratorUnavailable mean the backend is shedding load.
	Generate(ctx context.Context, req Request) (string, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Request is a single completion request.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}
