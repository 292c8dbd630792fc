package llm

import (
	"encoding/json"
	"math"

	"github.com/tmc/langchaingo/llms"

	"ember/internal/chat"
)

// EstimateMessages approximates the token count of a conversation as
// ceil(total content characters / 4). It is a budget heuristic, not a
// tokenizer; callers must only rely on it growing with input size.
func EstimateMessages(msgs []chat.Message) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
		for _, tc := range m.ToolCalls {
			total += len(tc.Name) + len(tc.Arguments)
		}
	}
	return ceilDiv4(total)
}

// EstimateTools approximates the token cost of the serialized tool schema
// array. Never fails: a schema that cannot be serialized counts as 0.
func EstimateTools(tools []llms.Tool) int {
	if len(tools) == 0 {
		return 0
	}
	raw, err := json.Marshal(tools)
	if err != nil {
		return 0
	}
	return ceilDiv4(len(raw))
}

func ceilDiv4(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / 4.0))
}
