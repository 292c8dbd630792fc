// Package llm provides chat.Adapter implementations for LLM backends: the
// hand-rolled OpenAI-compatible HTTP client (the default) and a LangChainGo
// Ollama client. Provider selection, configuration resolution and model
// discovery live here so the rest of the app only sees chat.Adapter.
package llm

import (
	"os"

	"github.com/sirupsen/logrus"

	"ember/internal/chat"
)

// Provider names accepted in EMBER_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// NewAdapter builds the configured provider. The default is the
// OpenAI-compatible adapter; EMBER_PROVIDER=ollama selects the LangChainGo
// Ollama client instead.
//
// interactive controls whether missing configuration may prompt the user.
func NewAdapter(store SecretStore, prompter Prompter, interactive bool) (chat.Adapter, error) {
	provider := os.Getenv("EMBER_PROVIDER")
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOllama:
		host := os.Getenv("EMBER_OLLAMA_HOST")
		model := os.Getenv("EMBER_OLLAMA_MODEL")
		return NewOllamaAdapter(host, model)
	case ProviderOpenAI:
		cfg, ok, err := ResolveConfig(store, prompter, interactive)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ConfigurationError{Reason: "no base URL set, run `ember setup`"}
		}
		logrus.WithField("base_url", cfg.BaseURL).Debug("using openai-compatible backend")
		return NewOpenAIAdapter(cfg), nil
	default:
		return nil, &ConfigurationError{Reason: "unknown provider " + provider}
	}
}
