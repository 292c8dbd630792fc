// Package gateway wires configuration, the LLM adapter, skills and
// middlewares into a running chat service, and hosts the interactive REPL.
package gateway

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ember/internal/browser"
	"ember/internal/chat"
	"ember/internal/llm"
	"ember/internal/memory"
	"ember/internal/middleware"
	"ember/internal/onboarding"
	"ember/internal/secrets"
	"ember/internal/skills"
	_ "ember/middlewares/autoload" // side-effect middleware registration
)

type Gateway struct {
	ConfigPath string
	// Interactive allows missing configuration to prompt. One-shot and
	// scripted runs leave it false so they fail fast instead.
	Interactive bool
}

func New(configPath string) *Gateway {
	return &Gateway{ConfigPath: configPath}
}

type runtime struct {
	service *chat.Service
	model   string
	baseCtx map[string]any
	cleanup func()
}

func (g *Gateway) initRuntime(ctx context.Context) (*runtime, error) {
	_ = godotenv.Load()

	store, err := secrets.NewDefaultStore()
	if err != nil {
		return nil, err
	}

	model := ""
	var disabled []string
	if g.ConfigPath != "" {
		if cfg, err := onboarding.LoadConfig(g.ConfigPath); err == nil {
			model = cfg.Model
			disabled = cfg.DisabledMiddlewares
		}
	}
	if m := os.Getenv("EMBER_MODEL"); m != "" {
		model = m
	}
	if len(disabled) > 0 && os.Getenv("EMBER_DISABLED_MIDDLEWARES") == "" {
		os.Setenv("EMBER_DISABLED_MIDDLEWARES", strings.Join(disabled, ","))
	}

	var prompter llm.Prompter
	if g.Interactive {
		prompter = onboarding.NewWizard(store)
	}
	adapter, err := llm.NewAdapter(store, prompter, g.Interactive)
	if err != nil {
		return nil, err
	}

	// Model discovery feeds both the clamping table and the budget hints
	// middlewares read from the event context.
	baseCtx := map[string]any{}
	if oa, ok := adapter.(*llm.OpenAIAdapter); ok {
		cfg, _, err := llm.ResolveConfig(store, nil, false)
		if err == nil {
			discovery, cancel := context.WithTimeout(ctx, 10*time.Second)
			models, err := llm.ListModels(discovery, nil, cfg)
			cancel()
			if err != nil {
				logrus.WithError(err).Warn("model discovery failed")
			} else {
				oa.SetModels(models)
				if model == "" && len(models) > 0 {
					model = models[0].ID
				}
				for _, m := range models {
					if m.ID == model {
						baseCtx["max_prompt_tokens"] = m.MaxPromptTokens
					}
				}
			}
		}
	}

	chain := middleware.NewChainFromRegistry(openDebugLog())

	home, _ := os.UserHomeDir()
	memStore, err := memory.NewPersistentStore(filepath.Join(home, ".ember", "memory.json"))
	if err != nil {
		logrus.WithError(err).Warn("memory store unavailable, using volatile store")
		memStore = memory.NewStore()
	}

	browserCtrl := browser.New(browser.Config{
		Enabled:  os.Getenv("EMBER_BROWSER") != "off",
		Headless: true,
	})
	browserOK := browserCtrl.Start(ctx) == nil

	skillMgr := skills.NewManager()
	skills.RegisterBuiltins(skillMgr)
	skills.RegisterMemory(skillMgr, memStore)
	if browserOK {
		skills.RegisterBrowser(skillMgr, browserCtrl)
	}

	opts := []chat.ServiceOption{
		chat.WithSkills(skillMgr),
		chat.WithParams(middleware.LLMParams{Model: model}),
		chat.WithPartSink(printPart),
	}
	if chain != nil {
		opts = append(opts, chat.WithMiddlewareChain(chain))
	}
	if prompt := os.Getenv("EMBER_SYSTEM_PROMPT"); prompt != "" {
		opts = append(opts, chat.WithSystemPrompt(prompt))
	}

	return &runtime{
		service: chat.NewService(adapter, opts...),
		model:   model,
		baseCtx: baseCtx,
		cleanup: browserCtrl.Stop,
	}, nil
}

// Execute runs a single prompt and exits.
func (g *Gateway) Execute(ctx context.Context, input string) error {
	rt, err := g.initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	if _, err := rt.service.SendWithContext(turnCtx, input, rt.baseCtx); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

// Run starts the interactive REPL.
func (g *Gateway) Run(ctx context.Context) error {
	rt, err := g.initRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	fmt.Println("ember chat")
	fmt.Printf("model=%s\n", valueOrDefault(rt.model, "backend default"))
	fmt.Println("Type /exit to quit, /clear to reset context.")

	// Ctrl-C is turn-scoped here: it cancels only the in-flight turn, and
	// the decoder surfaces whatever was streamed before the cancel. The
	// Reset detaches the process-wide interrupt context so the first Ctrl-C
	// does not end the REPL; SIGTERM still does, through ctx.
	sigCh := make(chan os.Signal, 1)
	signal.Reset(os.Interrupt)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	scanner := bufio.NewScanner(os.Stdin)
	go func() {
		<-ctx.Done()
		os.Stdin.Close() // force a read error to break the loop
	}()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "/exit", "exit", "quit":
			return nil
		case "/clear":
			rt.service.Clear()
			fmt.Println("context cleared")
			continue
		}

		select {
		case <-sigCh: // a Ctrl-C pressed at the prompt cancels nothing
		default:
		}
		turnCtx, cancel := turnContext(ctx, sigCh, turnTimeout)
		_, err := rt.service.SendWithContext(turnCtx, input, rt.baseCtx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
	}
}

// turnTimeout bounds a single turn, interactive or one-shot.
const turnTimeout = 5 * time.Minute

// turnContext derives the context for one turn: done on the timeout, on the
// parent, or on an interrupt arriving over sig.
func turnContext(parent context.Context, sig <-chan os.Signal, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Models prints the backend catalog.
func (g *Gateway) Models(ctx context.Context) error {
	_ = godotenv.Load()
	store, err := secrets.NewDefaultStore()
	if err != nil {
		return err
	}
	cfg, ok, err := llm.ResolveConfig(store, nil, false)
	if err != nil {
		return err
	}
	if !ok {
		return &llm.ConfigurationError{Reason: "no base URL set, run `ember setup`"}
	}

	models, err := llm.ListModels(ctx, nil, cfg)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Printf("%-40s in=%d out=%d prompt=%d\n", m.Name, m.MaxInputTokens, m.MaxOutputTokens, m.MaxPromptTokens)
	}
	return nil
}

// printPart streams parts to stdout as the decoder emits them.
func printPart(p chat.Part) {
	if p.IsTool() {
		fmt.Printf("\n[tool: %s]\n", p.Tool.Name)
		return
	}
	fmt.Print(p.Text)
}

func openDebugLog() io.Writer {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".ember", "middleware.debug.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logrus.WithError(err).Warn("middleware debug log unavailable")
		return nil
	}
	return f
}

func valueOrDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
