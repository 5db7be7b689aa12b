// Command livellm runs agent, speech and transcription calls through a LiveLLM gateway,
// with provider fallback and binary input conversion.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/livellm/livellm-go"
	"github.com/livellm/livellm-go/config"
	"github.com/livellm/livellm-go/gateway"
)

var (
	errColor  = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

type app struct {
	configPath string
	verbose    bool
	retry      bool

	client *livellm.Client
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			warnColor.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		errColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "livellm",
		Short: "Multi-provider LLM gateway client with fallback",
		Long: `livellm sends agent, speech and transcription calls to a LiveLLM gateway.

Every call is tried against each configured provider that serves the model, in
configuration order, until one succeeds. Images, audio and video attached to an
agent call are converted to text first when the target model cannot read them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "livellm.yaml", "path to configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log fallback attempts and transport calls")
	root.PersistentFlags().BoolVar(&a.retry, "retry", false, "retry rate limited and 5xx calls against the same provider before falling back")

	root.AddCommand(
		a.runCmd(),
		a.streamCmd(),
		a.speakCmd(),
		a.transcribeCmd(),
		a.pingCmd(),
		a.modelsCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	providers, err := cfg.ProviderConfigs()
	if err != nil {
		return err
	}

	level := slog.LevelError
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var wrappers []livellm.TransportWrapperFunc
	if a.verbose {
		wrappers = append(wrappers, livellm.WithTransportLogging(logger))
	}
	if a.retry {
		wrappers = append(wrappers, livellm.WithRetry(nil))
	}
	transport := livellm.WrapTransport(
		gateway.New(cfg.Gateway.BaseURL, gateway.WithTimeout(cfg.Gateway.Timeout)),
		wrappers...,
	)

	client, err := livellm.New(transport, providers, livellm.WithLogger(logger))
	if err != nil {
		return err
	}
	a.client = client
	return nil
}
