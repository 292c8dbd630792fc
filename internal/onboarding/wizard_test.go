package onboarding

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"ember/internal/llm"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	in := &Config{
		Model:               "org/llama-3-8b",
		Provider:            llm.ProviderOpenAI,
		DisabledMiddlewares: []string{"greeting"},
	}
	if err := SaveConfig(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Model != in.Model || out.Provider != in.Provider {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if len(out.DisabledMiddlewares) != 1 || out.DisabledMiddlewares[0] != "greeting" {
		t.Fatalf("unexpected middlewares %v", out.DisabledMiddlewares)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPickModelPlain(t *testing.T) {
	models := []llm.ModelInfo{
		{ID: "a", Name: "a"},
		{ID: "b", Name: "b"},
	}

	w := &Wizard{scanner: bufio.NewScanner(strings.NewReader("2\n")), out: io.Discard}
	got, err := w.pickModelPlain(models)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "b" {
		t.Fatalf("expected b, got %q", got)
	}

	// Empty answer takes the first model; junk is re-asked.
	w = &Wizard{scanner: bufio.NewScanner(strings.NewReader("nope\n\n")), out: io.Discard}
	got, err = w.pickModelPlain(models)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a" {
		t.Fatalf("expected default a, got %q", got)
	}
}
