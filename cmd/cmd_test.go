package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/engine"
	"github.com/sells-group/outreach-cli/internal/ingest"
	"github.com/sells-group/outreach-cli/internal/mailer"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

func setupConfig(t *testing.T) {
	t.Helper()
	c := config.Defaults()
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "outreach.db")
	c.Generation.Provider = config.ProviderNone
	c.Batch.WarmPauseMs = 0
	c.Send.PauseMs = 0
	cfg = c
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"generate", "send", "serve", "history", "ping", "config", "sample"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "outreach", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestGenerateCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "limit", "output", "offline", "concurrency"} {
		assert.NotNil(t, generateCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "0", generateCmd.Flags().Lookup("limit").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestInitStore(t *testing.T) {
	setupConfig(t)
	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cfg.Store.Driver = "mysql"
	_, err = initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestNewGenerator(t *testing.T) {
	c := config.Defaults()

	gen, err := newGenerator(c)
	require.NoError(t, err)
	assert.IsType(t, &engine.OllamaGenerator{}, gen)

	c.Generation.Provider = config.ProviderAnthropic
	c.Anthropic.Key = "test-key"
	gen, err = newGenerator(c)
	require.NoError(t, err)
	assert.IsType(t, &engine.AnthropicGenerator{}, gen)

	c.Generation.Provider = config.ProviderNone
	gen, err = newGenerator(c)
	require.NoError(t, err)
	assert.Nil(t, gen)

	c.Generation.Provider = "bard"
	_, err = newGenerator(c)
	assert.Error(t, err)
}

func writeSampleInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_prospects.csv")
	require.NoError(t, ingest.WriteSample(path, false))
	return path
}

func TestRunGenerate_Offline(t *testing.T) {
	setupConfig(t)
	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	res, err := runGenerate(ctx, writeSampleInput(t), 0, nil, st, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Counts.Total)
	assert.Equal(t, 5, res.Counts.Fallback)
	assert.Equal(t, "test_prospects.csv", res.Source)
	require.Len(t, res.Emails, 5)
	for i, e := range res.Emails {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, model.MethodFallback, e.Method)
	}
	assert.Equal(t, "Professional Cleaning Services for Macalester College", res.Emails[0].Subject)

	b, err := st.GetBatch(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Counts, b.Counts)

	stored, err := st.ListEmails(ctx, store.EmailFilter{BatchID: res.ID})
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestRunGenerate_Limit(t *testing.T) {
	setupConfig(t)
	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	res, err := runGenerate(ctx, writeSampleInput(t), 2, nil, st, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counts.Total)
}

func TestRunGenerate_EmptyInput(t *testing.T) {
	setupConfig(t)
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("Company Name,Industry\n"), 0o644))

	_, err := runGenerate(context.Background(), path, 0, nil, nil, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no prospects found")
}

func TestWriteResultJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeResultJSON(path, &model.BatchResult{ID: "b1"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "b1"`)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &model.BatchResult{
		ID:        "b1",
		Counts:    model.Counts{AIFast: 2, Fallback: 1, Failed: 1, Total: 4},
		Failures:  []model.RecordFailure{{Index: 3, Company: "Boom", Error: "bad record"}},
		Cancelled: true,
	})
	out := buf.String()
	assert.Contains(t, out, "Batch b1: 4 prospects")
	assert.Contains(t, out, "ai_fast:  2")
	assert.Contains(t, out, "row 4 (Boom): bad record")
	assert.Contains(t, out, "Cancelled")
}

func TestSendBatchEmails_DryRun(t *testing.T) {
	setupConfig(t)
	ctx := context.Background()
	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	res, err := runGenerate(ctx, writeSampleInput(t), 3, nil, st, prometheus.NewRegistry())
	require.NoError(t, err)

	d := newDispatcher(cfg, st, true, nil)
	rep, err := sendBatchEmails(ctx, st, d, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Sent)

	sent := true
	marked, err := st.ListEmails(ctx, store.EmailFilter{BatchID: res.ID, Sent: &sent})
	require.NoError(t, err)
	assert.Empty(t, marked)

	_, err = sendBatchEmails(ctx, st, d, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrintSendReport(t *testing.T) {
	var buf bytes.Buffer
	printSendReport(&buf, mailer.Report{
		Sent:     1,
		Failed:   1,
		Failures: []model.RecordFailure{{Company: "Globex", Error: "550 mailbox unavailable"}},
	})
	assert.Contains(t, buf.String(), "Sent 1, failed 1, skipped 0")
	assert.Contains(t, buf.String(), "Globex: 550")

	buf.Reset()
	printSendReport(&buf, mailer.Report{Sent: 2, Duplicates: 1})
	assert.Contains(t, buf.String(), "1 email(s) were also sent by another process")
}

func TestExportHistory(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.Local)
	emails := []model.EmailRecord{
		{
			Prospect: model.Prospect{Company: "Acme Corp", Email: "jo@acme.example", Category: "Software"},
			Subject:  "Professional Cleaning Services for Acme Corp",
			Body:     "Dear Jo,\n\nHello, friend.",
			Sent:     true,
			SentAt:   &at,
		},
		{Prospect: model.Prospect{Company: "Globex"}},
	}

	var buf bytes.Buffer
	require.NoError(t, exportHistory(&buf, emails))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, historyHeader, rows[0])
	assert.Equal(t, []string{"2026-03-02 10:30:00", "Acme Corp", "jo@acme.example", "Software",
		"Professional Cleaning Services for Acme Corp", "Dear Jo,\n\nHello, friend."}, rows[1])
	assert.Equal(t, "", rows[2][0])
}

func TestPrintBatchesAndEmails(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printBatches(&buf, []model.Batch{{ID: "b1", Counts: model.Counts{Total: 3}, Source: "p.csv", Cancelled: true}}))
	assert.Contains(t, buf.String(), "b1")
	assert.Contains(t, buf.String(), "(cancelled)")

	buf.Reset()
	require.NoError(t, printEmails(&buf, []model.EmailRecord{{ID: "e1", Method: model.MethodAISlow}}))
	assert.Contains(t, buf.String(), "ai_slow")
}

func TestBuildHandler(t *testing.T) {
	setupConfig(t)
	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	h := buildHandler(st, prometheus.NewRegistry())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/emails/e1/send", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestPing(t *testing.T) {
	setupConfig(t)
	var buf bytes.Buffer
	require.NoError(t, ping(context.Background(), &buf, nil, time.Second))
	assert.Contains(t, buf.String(), "templates only")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"}]}`))
	}))
	defer srv.Close()

	cfg.Generation.Provider = config.ProviderOllama
	cfg.Ollama.URL = srv.URL + "/api/generate"
	gen, err := newGenerator(cfg)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, ping(context.Background(), &buf, gen, time.Second))
	assert.Contains(t, buf.String(), "Generation service OK")

	cfg.Ollama.Model = "mistral"
	gen, err = newGenerator(cfg)
	require.NoError(t, err)
	err = ping(context.Background(), &buf, gen, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}
