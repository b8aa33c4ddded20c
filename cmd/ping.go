package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/engine"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the generation service is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		return ping(cmd.Context(), os.Stdout, gen, pingTimeout)
	},
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 3*time.Second, "availability check timeout")
	rootCmd.AddCommand(pingCmd)
}

func ping(ctx context.Context, w io.Writer, gen engine.Generator, timeout time.Duration) error {
	if gen == nil {
		fmt.Fprintln(w, "Generation provider is none; emails use templates only.")
		return nil
	}
	p, ok := gen.(engine.Pinger)
	if !ok {
		fmt.Fprintf(w, "Provider %s has no availability check.\n", cfg.Generation.Provider)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return eris.Wrap(err, "generation service unavailable")
	}
	fmt.Fprintf(w, "Generation service OK (%s, %s)\n", cfg.Ollama.Model, time.Since(start).Round(time.Millisecond))
	return nil
}
