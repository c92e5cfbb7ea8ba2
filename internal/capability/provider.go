package capability

import (
	"context"

	"github.com/smartinprabhu/newgpt/pkg/types"
)

// Provider abstracts the text-generation and embedding capabilities the
// workflow engine and similarity index depend on. Invoke may block for
// seconds; both methods honor context cancellation.
type Provider interface {
	// Invoke runs the step's agent against a composed context prompt and
	// returns the generated text.
	Invoke(ctx context.Context, step types.StepName, contextPrompt string) (string, error)
	// Embed returns the embedding vector for a text. Callers treat a failure
	// as soft: the documented fallback is a zero vector, never a hard error
	// surfaced to the user.
	Embed(ctx context.Context, text string) ([]float64, error)
}
