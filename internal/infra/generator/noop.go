package generator

import (
	"context"
	"fmt"
	"strings"

	"agency-site/internal/usecase/copywriting"
)

// ProviderNoOp is the provider label for the NoOp backend.
const ProviderNoOp = "noop"

// NoOp is a generator that echoes a deterministic placeholder built from
// the prompt. This is useful for local development and tests when no
// provider credentials are available.
type NoOp struct{}

// NewNoOp creates a new NoOp generator.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Name implements copywriting.Generator.
func (n *NoOp) Name() string { return ProviderNoOp }

// Generate returns the first line of the prompt wrapped in a placeholder.
func (n *NoOp) Generate(ctx context.Context, req copywriting.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(req.Prompt), "\n")
	return fmt.Sprintf("[draft copy] %s", first), nil
}
