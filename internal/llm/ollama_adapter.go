package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"ember/internal/chat"
	"ember/internal/middleware"
)

// OllamaAdapter wraps the LangChainGo Ollama client behind the same
// chat.Adapter surface as the OpenAI-compatible path, for users running a
// local Ollama daemon instead of an OpenAI-style server.
type OllamaAdapter struct {
	client *ollama.LLM
	model  string
}

func NewOllamaAdapter(host, model string) (*OllamaAdapter, error) {
	if model == "" {
		model = "llama3"
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if host != "" {
		opts = append(opts, ollama.WithServerURL(host))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &OllamaAdapter{client: client, model: model}, nil
}

func (a *OllamaAdapter) ReplyStream(ctx context.Context, history []chat.Message, params *middleware.LLMParams, emit func(chat.Part)) (string, []chat.ToolCall, error) {
	if params == nil {
		params = &middleware.LLMParams{}
	}
	if err := validateMessages(history); err != nil {
		return "", nil, err
	}

	opts := []llms.CallOption{
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) > 0 && emit != nil {
				emit(chat.TextPart(string(chunk)))
			}
			return nil
		}),
	}
	if params.Model != "" {
		opts = append(opts, llms.WithModel(params.Model))
	}
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*params.Temperature))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(*params.TopP))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}
	if len(params.Tools) > 0 {
		opts = append(opts, llms.WithTools(params.Tools))
	}

	resp, err := a.client.GenerateContent(ctx, toLangchainMessages(history), opts...)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("ollama generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, nil
	}

	choice := resp.Choices[0]
	var calls []chat.ToolCall
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		call := chat.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
			Args:      chat.ParseToolArgs(tc.FunctionCall.Arguments),
		}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		calls = append(calls, call)
		if emit != nil {
			emit(chat.ToolPart(&call))
		}
	}
	return choice.Content, calls, nil
}

func toLangchainMessages(history []chat.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case chat.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case chat.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, mc)
		case chat.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.ToolName,
					Content:    m.Content,
				}},
			})
		}
	}
	return out
}
