package skills

import (
	"context"
	"fmt"
	"strings"

	"ember/internal/memory"
)

const memoryNamespace = "user_facts"

// RegisterMemory adds the long-term memory tool backed by the given store.
func RegisterMemory(m *Manager, store *memory.Store) {
	m.Register(&funcSkill{
		name: "memory",
		desc: "Stores or retrieves information from long-term memory.",
		params: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"remember", "recall"},
					"description": "Action to perform.",
				},
				"key": map[string]any{
					"type":        "string",
					"description": "The topic (remember only).",
				},
				"value": map[string]any{
					"type":        "string",
					"description": "The information to store (remember only).",
				},
				"query": map[string]any{
					"type":        "string",
					"description": "The search query (recall only).",
				},
			},
			"required": []string{"action"},
		},
		run: func(_ context.Context, args map[string]any) (string, error) {
			switch stringArg(args, "action") {
			case "remember":
				value := stringArg(args, "value")
				if value == "" {
					return "", fmt.Errorf("value is required for remember")
				}
				if key := stringArg(args, "key"); key != "" {
					value = key + ": " + value
				}
				if err := store.Add(memoryNamespace, value); err != nil {
					return "", err
				}
				return "Remembered: " + value, nil
			case "recall":
				query := stringArg(args, "query")
				if query == "" {
					return "", fmt.Errorf("query is required for recall")
				}
				hits := store.Search(memoryNamespace, query, 5)
				if len(hits) == 0 {
					return "No relevant memories found.", nil
				}
				return "- " + strings.Join(hits, "\n- "), nil
			default:
				return "", fmt.Errorf("unknown action %q", stringArg(args, "action"))
			}
		},
	})
}
