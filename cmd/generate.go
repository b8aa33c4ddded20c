package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/engine"
	"github.com/sells-group/outreach-cli/internal/ingest"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/ollama"
)

var (
	generateInput       string
	generateLimit       int
	generateOutput      string
	generateOffline     bool
	generateConcurrency int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate outreach emails for a prospect spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if generateOffline {
			cfg.Generation.Provider = config.ProviderNone
		}
		if generateConcurrency > 0 {
			cfg.Batch.Concurrency = generateConcurrency
		}
		if err := cfg.Validate("generate"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}

		res, err := runGenerate(ctx, generateInput, generateLimit, gen, st, prometheus.NewRegistry())
		if err != nil {
			return err
		}

		if generateOutput != "" {
			if err := writeResultJSON(generateOutput, res); err != nil {
				return err
			}
		}
		printSummary(os.Stdout, res)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateInput, "input", "i", "", "prospect file (.csv or .xlsx)")
	generateCmd.Flags().IntVar(&generateLimit, "limit", 0, "max number of prospects to process (0 = all)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "also write the batch result as JSON")
	generateCmd.Flags().BoolVar(&generateOffline, "offline", false, "skip the generation service and use templates only")
	generateCmd.Flags().IntVar(&generateConcurrency, "concurrency", 0, "parallel records (default from config)")
	_ = generateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(generateCmd)
}

// newGenerator builds the configured provider. ProviderNone returns a nil
// generator, which runs the engine offline.
func newGenerator(c *config.Config) (engine.Generator, error) {
	switch c.Generation.Provider {
	case config.ProviderOllama:
		return &engine.OllamaGenerator{
			Client: ollama.NewClient(ollama.WithURL(c.Ollama.URL), ollama.WithModel(c.Ollama.Model)),
			Model:  c.Ollama.Model,
		}, nil
	case config.ProviderAnthropic:
		var opts []anthropic.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(c.Anthropic.BaseURL))
		}
		return &engine.AnthropicGenerator{
			Client:    anthropic.NewClient(c.Anthropic.Key, opts...),
			Model:     c.Anthropic.Model,
			MaxTokens: int64(c.Anthropic.MaxTokens),
		}, nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}
}

// runGenerate loads the input, runs the batch and persists the result. The
// result is saved even when ctx is cancelled part way.
func runGenerate(ctx context.Context, input string, limit int, gen engine.Generator, st store.Store, reg prometheus.Registerer) (*model.BatchResult, error) {
	loaded, err := ingest.LoadFile(input)
	if err != nil {
		return nil, err
	}
	if loaded.Skipped > 0 {
		zap.L().Warn("skipped rows without a company name", zap.Int("rows", loaded.Skipped))
	}
	if len(loaded.Filled) > 0 {
		zap.L().Info("filled missing columns with defaults", zap.Strings("fields", loaded.Filled))
	}

	prospects := loaded.Prospects
	if len(prospects) == 0 {
		return nil, eris.Errorf("no prospects found in %s", input)
	}
	if limit > 0 && len(prospects) > limit {
		prospects = prospects[:limit]
	}

	rec := metrics.New(reg)
	eng := engine.New(gen, engine.OptionsFromConfig(cfg.Generation))
	eng.SetRecorder(rec)

	if !eng.Offline() {
		if err := eng.Warmup(ctx); err != nil {
			zap.L().Warn("generation service unavailable, records may use templates", zap.Error(err))
		}
	}

	opts := batch.OptionsFromConfig(cfg)
	opts.Source = filepath.Base(input)
	coord := batch.NewCoordinator(eng, opts, rec)

	events := make(chan model.ProgressEvent, len(prospects))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			zap.L().Info(ev.Message,
				zap.Int("current", ev.Current),
				zap.Int("total", ev.Total),
				zap.String("method", string(ev.Method)),
			)
		}
	}()

	res := coord.Run(ctx, prospects, events)
	close(events)
	<-done

	if err := st.SaveBatch(context.WithoutCancel(ctx), res); err != nil {
		return res, eris.Wrap(err, "save batch")
	}
	return res, nil
}

func writeResultJSON(path string, res *model.BatchResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal batch result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func printSummary(w io.Writer, res *model.BatchResult) {
	c := res.Counts
	fmt.Fprintf(w, "Batch %s: %d prospects\n", res.ID, c.Total)
	fmt.Fprintf(w, "  ai_fast:  %d\n", c.AIFast)
	fmt.Fprintf(w, "  ai_slow:  %d\n", c.AISlow)
	fmt.Fprintf(w, "  fallback: %d\n", c.Fallback)
	fmt.Fprintf(w, "  failed:   %d\n", c.Failed)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  ! row %d (%s): %s\n", f.Index+1, f.Company, f.Error)
	}
	if res.Cancelled {
		fmt.Fprintln(w, "Cancelled before every prospect was processed.")
	}
}
