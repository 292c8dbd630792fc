package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"ember/internal/chat"
)

// Wire shapes for the OpenAI-compatible chat completions API. Kept private:
// everything outside this package speaks chat.Message / chat.ToolCall.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireToolCall struct {
	// Index is only present on streaming deltas, where it keys fragment
	// accumulation. Pointer so index 0 survives round-trips.
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type wireTool struct {
	Type     string          `json:"type"`
	Function wireFunctionDef `json:"function"`
}

type wireFunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []wireMessage  `json:"messages"`
	Stream      bool           `json:"stream"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	TopP        *float64       `json:"top_p,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Tools       []wireTool     `json:"tools,omitempty"`
	ToolChoice  any            `json:"tool_choice,omitempty"`
}

// streamChunk is one `data: {...}` event payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func translateMessages(history []chat.Message) []wireMessage {
	out := make([]wireMessage, 0, len(history))
	for _, m := range history {
		wm := wireMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.ToolName,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

func translateTools(tools []llms.Tool) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunctionDef{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}

// validateMessages enforces the structural rules the backend would otherwise
// reject server-side, so bad requests fail before any network call.
func validateMessages(history []chat.Message) error {
	if len(history) == 0 {
		return &ValidationError{Reason: "empty message list"}
	}
	for i, m := range history {
		switch m.Role {
		case chat.RoleUser, chat.RoleAssistant, chat.RoleSystem, chat.RoleTool:
		default:
			return &ValidationError{Reason: fmt.Sprintf("message %d has unknown role %q", i, m.Role)}
		}
		if m.Role == chat.RoleTool && m.ToolCallID == "" {
			return &ValidationError{Reason: fmt.Sprintf("tool message %d missing tool_call_id", i)}
		}
		if m.Content == "" && len(m.ToolCalls) == 0 && m.Role != chat.RoleAssistant {
			return &ValidationError{Reason: fmt.Sprintf("message %d has no content", i)}
		}
	}
	return nil
}
