package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// The backend's model list carries no per-model limits, so a uniform default
// split is imposed on every model.
const (
	defaultMaxOutputTokens = 16000
	defaultMaxInputTokens  = 128000 - defaultMaxOutputTokens
)

// ModelInfo is the host-facing model descriptor derived from the backend
// catalog.
type ModelInfo struct {
	ID              string
	Name            string
	Family          string
	MaxInputTokens  int
	MaxOutputTokens int
	// MaxPromptTokens is the single prompt-budget figure some callers want:
	// input + output.
	MaxPromptTokens int
	ToolCalls       bool
	ImageInput      bool
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels fetches GET <baseURL>/v1/models and maps each entry to a
// ModelInfo with the default token budgets.
func ListModels(ctx context.Context, client *http.Client, cfg BackendConfig) ([]ModelInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build model list request: %w", err)
	}
	setAuthHeaders(req, cfg.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model list: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}

	var list modelListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse model list: %w", err)
	}

	models := make([]ModelInfo, 0, len(list.Data))
	for _, item := range list.Data {
		if item.ID == "" {
			continue
		}
		models = append(models, ModelInfo{
			ID:              item.ID,
			Name:            item.ID,
			Family:          modelFamily(item.ID),
			MaxInputTokens:  defaultMaxInputTokens,
			MaxOutputTokens: defaultMaxOutputTokens,
			MaxPromptTokens: defaultMaxInputTokens + defaultMaxOutputTokens,
			ToolCalls:       true,
			ImageInput:      false,
		})
	}
	return models, nil
}

func modelFamily(id string) string {
	// "org/family-size-variant" -> "family"
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.IndexAny(id, "-:"); i > 0 {
		return id[:i]
	}
	return id
}

func setAuthHeaders(req *http.Request, apiKey string) {
	if apiKey == "" {
		return
	}
	// Some compatible servers check the bearer token, others a bare header.
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("X-API-Key", apiKey)
}
