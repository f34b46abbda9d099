package llm

import (
	"context"
)

// LLMClient is the single capability the engine needs from a reasoning
// service. Implementations do no retries and no caching; callers own both.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
