package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/ingest"
)

var (
	sampleOutput string
	sampleForce  bool
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a sample prospect CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := ingest.WriteSample(sampleOutput, sampleForce); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d sample prospects to %s\n", len(ingest.SampleRows())-1, sampleOutput)
		return nil
	},
}

func init() {
	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "test_prospects.csv", "output path")
	sampleCmd.Flags().BoolVar(&sampleForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(sampleCmd)
}
