package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/logger"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

// usageError marks configuration problems that exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	_ = godotenv.Load() // best-effort: load .env if present
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "transcript-analyzer [transcript.json|dir]...",
		Short:         "Extract stock opinions and sentiment from video transcripts",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return usageError{err}
			}
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, args, cmd.OutOrStdout())
		},
	}
	registerFlags(root.Flags())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })
	root.AddCommand(newSchemaCmd())
	return root
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the analysis report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := analysis.ReportSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}

func run(ctx context.Context, cfg Config, inputs []string, out io.Writer) error {
	log := logger.New()
	if cfg.LogLevel != "" {
		log.SetLevel(cfg.LogLevel)
	}

	client := provider.New(provider.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	completer := provider.WithRetry(client, cfg.Retries, 2*time.Second)

	coord := &analysis.Coordinator{
		Pipeline: &analysis.Pipeline{
			Completer:             analysis.NewCachedCompleter(completer),
			Chunking:              analysis.ChunkOptions{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
			MaxConsolidationChars: cfg.MaxConsolidationChars,
			Log:                   log,
		},
		MaxConcurrency: cfg.MaxConcurrency,
		Log:            log,
	}

	if len(inputs) == 0 {
		inputs = []string{cfg.Directory}
	}
	log.WithField("model", client.Model()).Info("using completion model")

	res, err := analysis.RunBatch(ctx, coord, inputs, cfg.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "analyzed %d transcript(s), %d failed; results saved to %s\n", len(res), res.Failed(), cfg.Output)
	return nil
}
