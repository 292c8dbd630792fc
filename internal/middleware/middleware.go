package middleware

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

type EventName string

const (
	EventBeforeLLMRequest EventName = "before_llm_request"
	EventAfterLLMResponse EventName = "after_llm_response"
	EventBeforeToolExec   EventName = "before_tool_exec"
)

// LLMParams carries the per-request generation settings that middlewares may
// inspect or override before the adapter call.
type LLMParams struct {
	Model string

	// Nil means "use the adapter default". A set zero value is sent as-is,
	// so callers can ask for temperature 0 explicitly.
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Stop        []string

	// Tool / function calling schema (LangChainGo types, shared with the
	// adapters that translate them to the backend wire format).
	Tools      []llms.Tool
	ToolChoice any
}

type Decision struct {
	Cancel      bool   // stop the pipeline for this event
	Reason      string // for logs
	ReplaceText *string

	// Optional: change request params + continue
	OverrideParams *LLMParams
}

type Event struct {
	Name     EventName
	UserText string         // for before_llm_request
	LLMText  string         // for after_llm_response
	ToolName string         // for before_tool_exec
	Params   *LLMParams     // mutable
	Context  map[string]any // model budgets, workspace, mode, etc.
}

type Middleware interface {
	ID() string
	Priority() int
	OnEvent(ctx context.Context, e *Event) (Decision, error)
}

// ConditionalMiddleware is an optional extension that allows a middleware to
// be dynamically enabled/disabled per event.
//
// If a middleware implements this interface and returns false, it is skipped
// during dispatch (but still recorded in results with a "skipped" reason).
type ConditionalMiddleware interface {
	ShouldLoad(ctx context.Context, e *Event) bool
}
