package conversation

import "context"

// LLMClient is the NLU oracle: a single text prompt in, free text out. The
// response is expected to contain one JSON object but the caller tolerates
// anything, falling back to deterministic extraction on failure.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
