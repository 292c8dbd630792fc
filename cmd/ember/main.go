package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ember/internal/gateway"
	"ember/internal/llm"
	"ember/internal/onboarding"
	"ember/internal/secrets"
)

func main() {
	configureLogging()

	configPath, err := onboarding.DefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "ember",
		Short: "Chat with an OpenAI-compatible LLM backend from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := gateway.New(configPath)
			g.Interactive = true
			return g.Run(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	ask := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send a single prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return gateway.New(configPath).Execute(cmd.Context(), strings.Join(args, " "))
		},
	}

	models := &cobra.Command{
		Use:   "models",
		Short: "List the models the backend offers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return gateway.New(configPath).Models(cmd.Context())
		},
	}

	var plain bool
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Configure the backend URL, API key and default model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := secrets.NewDefaultStore()
			if err != nil {
				return err
			}
			_, err = onboarding.NewWizard(store).Run(cmd.Context(), configPath, !plain)
			return err
		},
	}
	setup.Flags().BoolVar(&plain, "plain", false, "use plain prompts instead of the TUI")

	root.AddCommand(ask, models, setup)

	// Ctrl-C cancels the in-flight turn instead of killing the process, so
	// the adapter can still return whatever was streamed before the cancel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		var cfgErr *llm.ConfigurationError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "%v\n", cfgErr)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func configureLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level := os.Getenv("EMBER_LOG")
	if level == "" {
		logrus.SetLevel(logrus.WarnLevel)
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.SetLevel(logrus.WarnLevel)
		return
	}
	logrus.SetLevel(parsed)
}
