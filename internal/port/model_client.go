package port

import "context"

// CompletionRequest carries the assembled prompt and optional document image
// for one upstream model call.
type CompletionRequest struct {
	Prompt      string
	Image       []byte // nil for text-only prompts
	ContentType string // image/jpeg or image/png when Image is set
	MaxTokens   int
}

// Completion is the raw output of one upstream model call. Transient,
// discarded after parsing.
type Completion struct {
	Text  string
	Model string
}

// ModelClient abstracts the external multimodal completion endpoint. The
// model is an untyped, non-deterministic text oracle; implementations return
// the raw completion text and classified transport errors.
type ModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
