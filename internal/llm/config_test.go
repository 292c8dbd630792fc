package llm

import (
	"testing"
)

type fakeStore struct {
	values map[string]string
	sets   int
}

func (s *fakeStore) Get(key string) (string, error) { return s.values[key], nil }
func (s *fakeStore) Set(key, value string) error {
	s.values[key] = value
	s.sets++
	return nil
}

type scriptedPrompter struct {
	answers []string
	asked   int
}

func (p *scriptedPrompter) Prompt(_ string, _ bool) (string, error) {
	if p.asked >= len(p.answers) {
		return "", nil
	}
	a := p.answers[p.asked]
	p.asked++
	return a, nil
}

func TestResolveConfigFromStore(t *testing.T) {
	store := &fakeStore{values: map[string]string{
		SecretKeyBaseURL: "http://localhost:8080/",
		SecretKeyAPIKey:  "sk-test",
	}}

	cfg, ok, err := ResolveConfig(store, nil, false)
	if err != nil || !ok {
		t.Fatalf("expected configured, got ok=%v err=%v", ok, err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("trailing slash should be trimmed, got %q", cfg.BaseURL)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("unexpected key %q", cfg.APIKey)
	}
}

func TestResolveConfigNonInteractiveNeverPrompts(t *testing.T) {
	store := &fakeStore{values: map[string]string{}}
	prompter := &scriptedPrompter{answers: []string{"http://should-not-be-asked"}}

	_, ok, err := ResolveConfig(store, prompter, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("missing base URL must resolve as not configured")
	}
	if prompter.asked != 0 {
		t.Fatalf("non-interactive resolve must not prompt")
	}
}

func TestResolveConfigInteractivePromptsAndPersists(t *testing.T) {
	store := &fakeStore{values: map[string]string{}}
	prompter := &scriptedPrompter{answers: []string{"http://localhost:1234", "sk-new"}}

	cfg, ok, err := ResolveConfig(store, prompter, true)
	if err != nil || !ok {
		t.Fatalf("expected configured, got ok=%v err=%v", ok, err)
	}
	if cfg.BaseURL != "http://localhost:1234" || cfg.APIKey != "sk-new" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if store.values[SecretKeyBaseURL] != "http://localhost:1234" {
		t.Fatalf("base URL answer must be persisted")
	}
	if store.values[SecretKeyAPIKey] != "sk-new" {
		t.Fatalf("api key answer must be persisted")
	}
}

func TestResolveConfigEmptyAPIKeyIsFine(t *testing.T) {
	store := &fakeStore{values: map[string]string{SecretKeyBaseURL: "http://localhost:8080"}}
	prompter := &scriptedPrompter{answers: []string{""}}

	cfg, ok, err := ResolveConfig(store, prompter, true)
	if err != nil || !ok {
		t.Fatalf("expected configured, got ok=%v err=%v", ok, err)
	}
	if cfg.APIKey != "" {
		t.Fatalf("empty key answer should stay empty, got %q", cfg.APIKey)
	}
	if store.sets != 0 {
		t.Fatalf("empty answers must not be persisted")
	}
}
