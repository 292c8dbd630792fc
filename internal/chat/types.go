package chat

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type Message struct {
	Role    Role
	Content string

	// For Assistant messages: the tool calls they made
	ToolCalls []ToolCall

	// For Tool messages: the ID of the call being answered
	ToolCallID string
	ToolName   string
}

// ToolCall is a completed tool invocation reconstructed from model output.
// Arguments holds the raw JSON string exactly as the backend sent it; Args
// holds the parsed object (or the ParseToolArgs fallback when the JSON was
// malformed).
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Args      map[string]any
}

// Part is one unit of incremental model output: either a text chunk or a
// completed tool call. Exactly one of Text / Tool is set. Once handed to a
// sink a part is final; the order of emission is the contract.
type Part struct {
	Text string
	Tool *ToolCall
}

func TextPart(s string) Part     { return Part{Text: s} }
func ToolPart(tc *ToolCall) Part { return Part{Tool: tc} }
func (p Part) IsTool() bool      { return p.Tool != nil }

// ParseToolArgs decodes a tool argument payload. Malformed JSON does not
// error; the raw text is preserved under "raw" so the tool (or the user) can
// still see what the model produced.
func ParseToolArgs(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{"raw": raw}
	}
	return args
}
