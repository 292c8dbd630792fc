// Package onboarding walks a new user through backend setup: base URL, API
// key, connectivity check, and default model selection.
package onboarding

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ember/internal/llm"
)

// Config holds the non-secret settings chosen during onboarding. Secrets
// (base URL, API key) live in the secret store instead.
type Config struct {
	Model               string   `json:"model"`
	Provider            string   `json:"provider"`
	DisabledMiddlewares []string `json:"disabled_middlewares,omitempty"`
}

func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ember", "config.json"), nil
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// Wizard drives the setup flow. It doubles as the llm.Prompter used by
// interactive config resolution.
type Wizard struct {
	store   llm.SecretStore
	scanner *bufio.Scanner
	out     io.Writer
}

func NewWizard(store llm.SecretStore) *Wizard {
	return &Wizard{
		store:   store,
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
}

// Prompt implements llm.Prompter on the plain terminal.
func (w *Wizard) Prompt(label string, _ bool) (string, error) {
	fmt.Fprintf(w.out, "%s: ", label)
	if !w.scanner.Scan() {
		return "", w.scanner.Err()
	}
	return strings.TrimSpace(w.scanner.Text()), nil
}

// Run performs the full setup. With useTUI the bubbletea flow handles input
// and model selection; otherwise everything happens on plain stdin/stdout.
// The chosen configuration is persisted before returning.
func (w *Wizard) Run(ctx context.Context, configPath string, useTUI bool) (*Config, error) {
	if useTUI {
		return w.runTUI(ctx, configPath)
	}

	fmt.Fprintln(w.out, "Welcome to ember setup.")
	cfg, ok, err := llm.ResolveConfig(w.store, w, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &llm.ConfigurationError{Reason: "no base URL entered"}
	}

	fmt.Fprintf(w.out, "Checking %s ...\n", cfg.BaseURL)
	models, err := llm.ListModels(ctx, nil, cfg)
	if err != nil {
		return nil, fmt.Errorf("backend check failed: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("backend reports no models")
	}

	model, err := w.pickModelPlain(models)
	if err != nil {
		return nil, err
	}

	out := &Config{Model: model, Provider: llm.ProviderOpenAI}
	if err := SaveConfig(configPath, out); err != nil {
		return nil, err
	}
	fmt.Fprintf(w.out, "Saved. Default model: %s\n", model)
	return out, nil
}

func (w *Wizard) pickModelPlain(models []llm.ModelInfo) (string, error) {
	fmt.Fprintln(w.out, "Available models:")
	for i, m := range models {
		fmt.Fprintf(w.out, "%3d) %s (in %d / out %d tokens)\n", i+1, m.Name, m.MaxInputTokens, m.MaxOutputTokens)
	}
	for {
		answer, err := w.Prompt(fmt.Sprintf("Choice (1-%d, default 1)", len(models)), false)
		if err != nil {
			return "", err
		}
		if answer == "" {
			return models[0].ID, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(models) {
			return models[n-1].ID, nil
		}
		fmt.Fprintln(w.out, "Invalid choice.")
	}
}
