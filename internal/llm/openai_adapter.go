package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"ember/internal/chat"
	"ember/internal/middleware"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// OpenAIAdapter talks to any OpenAI-compatible chat completions server
// (llama.cpp, vLLM, LM Studio, OpenAI itself). Responses are decoded by the
// streaming state machine in openai_stream.go.
//
// Not safe for concurrent use on the same instance: each call owns the turn
// from request to final part.
type OpenAIAdapter struct {
	cfg    BackendConfig
	client *http.Client
	log    *logrus.Entry

	// limits maps model id to its descriptor; used only to clamp
	// max_tokens. Missing entries fall back to the uniform default.
	limits map[string]ModelInfo
}

func NewOpenAIAdapter(cfg BackendConfig) *OpenAIAdapter {
	return &OpenAIAdapter{
		cfg:    cfg,
		client: &http.Client{},
		log:    logrus.WithField("component", "llm.openai"),
		limits: map[string]ModelInfo{},
	}
}

// SetModels records catalog descriptors so max_tokens can be clamped to the
// model's declared output budget.
func (a *OpenAIAdapter) SetModels(models []ModelInfo) {
	a.limits = make(map[string]ModelInfo, len(models))
	for _, m := range models {
		a.limits[m.ID] = m
	}
}

func (a *OpenAIAdapter) ReplyStream(ctx context.Context, history []chat.Message, params *middleware.LLMParams, emit func(chat.Part)) (string, []chat.ToolCall, error) {
	if params == nil {
		params = &middleware.LLMParams{}
	}
	if err := validateMessages(history); err != nil {
		return "", nil, err
	}

	body, err := json.Marshal(a.buildRequest(history, params))
	if err != nil {
		return "", nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuthHeaders(req, a.cfg.APIKey)

	a.log.WithFields(logrus.Fields{
		"model":    params.Model,
		"messages": len(history),
		"tools":    len(params.Tools),
	}).Debug("chat completion request")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled before the backend answered; nothing was produced.
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return "", nil, &RemoteError{Status: resp.StatusCode, Body: string(raw)}
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return decodeStream(ctx, resp.Body, emit)
	}
	return decodeSingle(resp.Body, emit)
}

// buildRequest assembles the wire body: stream always on, max_tokens clamped
// to the model's output budget, temperature defaulted when the caller left
// it unset.
func (a *OpenAIAdapter) buildRequest(history []chat.Message, params *middleware.LLMParams) chatRequest {
	maxTokens := defaultMaxTokens
	if params.MaxTokens != nil {
		maxTokens = *params.MaxTokens
	}
	maxOutput := defaultMaxOutputTokens
	if m, ok := a.limits[params.Model]; ok && m.MaxOutputTokens > 0 {
		maxOutput = m.MaxOutputTokens
	}
	if maxTokens > maxOutput {
		maxTokens = maxOutput
	}

	temperature := defaultTemperature
	if params.Temperature != nil {
		temperature = *params.Temperature
	}

	req := chatRequest{
		Model:       params.Model,
		Messages:    translateMessages(history),
		Stream:      true,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        params.TopP,
		Stop:        params.Stop,
	}
	if len(params.Tools) > 0 {
		req.Tools = translateTools(params.Tools)
		req.ToolChoice = params.ToolChoice
	}
	return req
}

// decodeSingle handles the non-streaming JSON response shape. Probes the
// standard chat shape, then the legacy completions shape, then falls back to
// pretty-printing the whole document so the caller at least sees something.
func decodeSingle(r io.Reader, emit func(chat.Part)) (string, []chat.ToolCall, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("read response: %w", err)
	}

	doc := gjson.ParseBytes(raw)
	text := doc.Get("choices.0.message.content").String()
	if text == "" {
		text = doc.Get("choices.0.text").String()
	}
	if text == "" {
		text = string(pretty.Pretty(raw))
	}

	if emit != nil {
		emit(chat.TextPart(text))
	}
	return text, nil, nil
}
