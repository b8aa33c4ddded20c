package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/mailer"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/store"
)

var (
	sendBatch  string
	sendAll    bool
	sendEmail  string
	sendDryRun bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send stored emails over SMTP",
	Long:  "Sends one stored email (--email) or every unsent email of a batch (--batch with --all). Sends are paced and never retried.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if (sendEmail == "") == !sendAll {
			return eris.New("specify exactly one of --email or --all")
		}
		if sendAll && sendBatch == "" {
			return eris.New("--all requires --batch")
		}
		if err := cfg.Validate("send"); err != nil {
			return err
		}
		if !sendDryRun && !cfg.IsEmailConfigured() {
			return eris.New("email is not configured: set email.from_email and email.from_password (run `outreach config init`)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		d := newDispatcher(cfg, st, sendDryRun, metrics.New(prometheus.NewRegistry()))
		if sendEmail != "" {
			rec, err := d.SendByID(ctx, sendEmail)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Sent %s to %s\n", rec.ID, rec.Prospect.Email)
			return nil
		}

		rep, err := sendBatchEmails(ctx, st, d, sendBatch)
		if err != nil {
			return err
		}
		printSendReport(os.Stdout, rep)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendBatch, "batch", "", "batch ID")
	sendCmd.Flags().BoolVar(&sendAll, "all", false, "send every unsent email in the batch")
	sendCmd.Flags().StringVar(&sendEmail, "email", "", "send a single email by ID")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "log messages instead of sending; nothing is marked sent")
	rootCmd.AddCommand(sendCmd)
}

// newDispatcher wires the SMTP account, or a logging sender on dry runs.
func newDispatcher(c *config.Config, st store.Store, dryRun bool, rec *metrics.Recorder) *mailer.Dispatcher {
	var sender mailer.Sender = mailer.NewSMTPSender(c.Email, time.Duration(c.Send.TimeoutSecs)*time.Second)
	var ds mailer.Store = st
	if dryRun {
		sender = mailer.LogSender{}
		ds = dryRunStore{st}
	}
	return mailer.NewDispatcher(sender, ds, c, rec)
}

// dryRunStore reads through to the store but never records a send.
type dryRunStore struct {
	store.Store
}

func (dryRunStore) MarkSent(context.Context, string, time.Time) error { return nil }

func sendBatchEmails(ctx context.Context, st store.Store, d *mailer.Dispatcher, batchID string) (mailer.Report, error) {
	if _, err := st.GetBatch(ctx, batchID); err != nil {
		return mailer.Report{}, err
	}
	unsent := false
	recs, err := st.ListEmails(ctx, store.EmailFilter{BatchID: batchID, Sent: &unsent})
	if err != nil {
		return mailer.Report{}, err
	}
	if len(recs) == 0 {
		return mailer.Report{}, nil
	}
	return d.SendAll(ctx, recs), nil
}

func printSendReport(w io.Writer, rep mailer.Report) {
	fmt.Fprintf(w, "Sent %d, failed %d, skipped %d\n", rep.Sent, rep.Failed, rep.Skipped)
	if rep.Duplicates > 0 {
		fmt.Fprintf(w, "  %d email(s) were also sent by another process and went out twice\n", rep.Duplicates)
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(w, "  ! %s: %s\n", f.Company, f.Error)
	}
	if rep.Cancelled {
		fmt.Fprintln(w, "Cancelled before every email was sent.")
	}
}
