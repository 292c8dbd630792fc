package llm

import (
	"strings"
)

// Secret store keys for the OpenAI-compatible backend. Fixed names so the
// setup wizard, CLI and adapters all agree.
const (
	SecretKeyBaseURL = "openai_base_url"
	SecretKeyAPIKey  = "openai_api_key"
)

// SecretStore is the persistence boundary for credentials. Satisfied by
// *secrets.Store.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Prompter asks the user for a value. Satisfied by the onboarding wizard and
// by a plain terminal prompter; secret controls input echo.
type Prompter interface {
	Prompt(label string, secret bool) (string, error)
}

// BackendConfig is a resolved OpenAI-compatible endpoint.
type BackendConfig struct {
	BaseURL string
	APIKey  string
}

// ResolveConfig reads the base URL and API key from the store. When a value
// is missing and interactive is true, the user is prompted and the answer is
// persisted. When interactive is false it never blocks: missing values stay
// missing so background calls fail fast instead of hanging on a prompt.
//
// Returns ok=false when no base URL could be resolved, meaning the backend
// is not configured. A missing API key is fine (local servers often need
// none).
func ResolveConfig(store SecretStore, prompter Prompter, interactive bool) (BackendConfig, bool, error) {
	baseURL, err := store.Get(SecretKeyBaseURL)
	if err != nil {
		return BackendConfig{}, false, err
	}
	apiKey, err := store.Get(SecretKeyAPIKey)
	if err != nil {
		return BackendConfig{}, false, err
	}

	if baseURL == "" && interactive && prompter != nil {
		baseURL, err = prompter.Prompt("OpenAI-compatible base URL (e.g. http://localhost:8080)", false)
		if err != nil {
			return BackendConfig{}, false, err
		}
		baseURL = strings.TrimSpace(baseURL)
		if baseURL != "" {
			if err := store.Set(SecretKeyBaseURL, baseURL); err != nil {
				return BackendConfig{}, false, err
			}
		}
	}
	if apiKey == "" && interactive && prompter != nil && baseURL != "" {
		apiKey, err = prompter.Prompt("API key (leave empty if none)", true)
		if err != nil {
			return BackendConfig{}, false, err
		}
		apiKey = strings.TrimSpace(apiKey)
		if apiKey != "" {
			if err := store.Set(SecretKeyAPIKey, apiKey); err != nil {
				return BackendConfig{}, false, err
			}
		}
	}

	if baseURL == "" {
		return BackendConfig{}, false, nil
	}
	return BackendConfig{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
	}, true, nil
}
