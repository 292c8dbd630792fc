package chat

import (
	"context"

	"ember/internal/middleware"
)

// Adapter abstracts chat completion providers.
//
// ReplyStream emits ordered progress parts (text chunks and completed tool
// calls) to emit as they are decoded, and returns the full assistant text
// plus all tool calls once the turn is done. Cancelling ctx stops the stream
// without error: the adapter returns whatever was produced up to that point.
type Adapter interface {
	ReplyStream(ctx context.Context, history []Message, params *middleware.LLMParams, emit func(Part)) (text string, calls []ToolCall, err error)
}
