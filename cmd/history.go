package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	historyBatch  string
	historySent   bool
	historyLimit  int
	historyExport string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored batches and emails, or export them to CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if historyBatch == "" && !historySent && historyExport == "" {
			batches, err := st.ListBatches(ctx, historyLimit)
			if err != nil {
				return eris.Wrap(err, "history")
			}
			if len(batches) == 0 {
				fmt.Fprintln(os.Stderr, "No batches found.")
				return nil
			}
			return printBatches(os.Stdout, batches)
		}

		filter := store.EmailFilter{BatchID: historyBatch, Limit: historyLimit}
		if historySent {
			sent := true
			filter.Sent = &sent
		}
		emails, err := st.ListEmails(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history")
		}

		if historyExport != "" {
			f, err := os.Create(historyExport)
			if err != nil {
				return eris.Wrapf(err, "create %s", historyExport)
			}
			if err := exportHistory(f, emails); err != nil {
				f.Close() //nolint:errcheck
				return err
			}
			if err := f.Close(); err != nil {
				return eris.Wrapf(err, "close %s", historyExport)
			}
			fmt.Fprintf(os.Stderr, "Exported %d emails to %s\n", len(emails), historyExport)
			return nil
		}

		if len(emails) == 0 {
			fmt.Fprintln(os.Stderr, "No emails found.")
			return nil
		}
		return printEmails(os.Stdout, emails)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "show emails of one batch")
	historyCmd.Flags().BoolVar(&historySent, "sent", false, "only sent emails")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "max rows (default 500)")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "write emails to a CSV file")
	rootCmd.AddCommand(historyCmd)
}

var historyHeader = []string{"Sent Date", "Company Name", "Contact Email", "Industry", "Subject", "Body"}

// exportHistory writes emails in the history CSV layout. Unsent emails have
// an empty sent date.
func exportHistory(w io.Writer, emails []model.EmailRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return eris.Wrap(err, "write history header")
	}
	for _, e := range emails {
		sentDate := ""
		if e.SentAt != nil {
			sentDate = e.SentAt.Local().Format(time.DateTime)
		}
		row := []string{sentDate, e.Prospect.Company, e.Prospect.Email, e.Prospect.Category, e.Subject, e.Body}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "write history row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush history")
}

func printBatches(w io.Writer, batches []model.Batch) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTOTAL\tAI_FAST\tAI_SLOW\tFALLBACK\tFAILED\tSOURCE")
	for _, b := range batches {
		c := b.Counts
		started := b.StartedAt.Local().Format(time.DateTime)
		if b.Cancelled {
			started += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			b.ID, started, c.Total, c.AIFast, c.AISlow, c.Fallback, c.Failed, b.Source)
	}
	return tw.Flush()
}

func printEmails(w io.Writer, emails []model.EmailRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tTO\tMETHOD\tSENT")
	for _, e := range emails {
		sent := "-"
		if e.SentAt != nil {
			sent = e.SentAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Prospect.Company, e.Prospect.Email, e.Method, sent)
	}
	return tw.Flush()
}
