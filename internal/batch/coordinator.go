// Package batch runs the hybrid generation engine over a prospect list.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/compose"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/engine"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
)

// MaxConcurrency is the upper clamp on the worker count; larger configured
// values are reduced to it.
const MaxConcurrency = 8

// Generator produces the generation outcome for one prospect.
// *engine.Engine implements it.
type Generator interface {
	Generate(ctx context.Context, p model.Prospect) engine.Outcome
}

// Options configures a Coordinator.
type Options struct {
	Concurrency int
	// WarmPause spaces consecutive record starts to keep the model warm.
	WarmPause time.Duration
	Sender    config.CompanyConfig
	Source    string
}

// OptionsFromConfig maps config sections to coordinator options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Concurrency: cfg.Batch.Concurrency,
		WarmPause:   time.Duration(cfg.Batch.WarmPauseMs) * time.Millisecond,
		Sender:      cfg.Company,
	}
}

// Coordinator drives a batch of prospects through the engine.
type Coordinator struct {
	gen     Generator
	opts    Options
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewCoordinator creates a Coordinator. rec may be nil.
func NewCoordinator(gen Generator, opts Options, rec *metrics.Recorder) *Coordinator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > MaxConcurrency {
		opts.Concurrency = MaxConcurrency
	}
	return &Coordinator{gen: gen, opts: opts, metrics: rec, now: time.Now}
}

type result struct {
	index  int
	record model.EmailRecord
	err    error
}

// Run processes prospects and returns the batch result ordered by input
// index. Cancelling ctx stops dispatching new records; records already in
// flight finish on a detached context and are kept. Progress events are
// sent without blocking and events may be nil. Run never closes events.
func (c *Coordinator) Run(ctx context.Context, prospects []model.Prospect, events chan<- model.ProgressEvent) *model.BatchResult {
	res := &model.BatchResult{
		ID:        uuid.NewString(),
		Source:    c.opts.Source,
		StartedAt: c.now().UTC(),
	}
	log := zap.L().With(zap.String("batch_id", res.ID), zap.Int("prospects", len(prospects)))
	log.Info("batch started", zap.Int("concurrency", c.opts.Concurrency))

	var limiter *rate.Limiter
	if c.opts.WarmPause > 0 {
		limiter = rate.NewLimiter(rate.Every(c.opts.WarmPause), 1)
	}

	var (
		mu      sync.Mutex
		results []result
	)

	g := new(errgroup.Group)
	g.SetLimit(c.opts.Concurrency)

	for i, p := range prospects {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
			}
			if ctx.Err() != nil {
				return nil
			}

			rec, err := c.process(context.WithoutCancel(ctx), res.ID, i, p)

			mu.Lock()
			results = append(results, result{index: i, record: rec, err: err})
			done := len(results)
			mu.Unlock()

			c.observe(rec, err)
			c.emit(events, progressEvent(done, len(prospects), i, p, rec, err))
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })

	for _, r := range results {
		if r.err != nil {
			res.Counts.Add(model.MethodFailed)
			res.Failures = append(res.Failures, model.RecordFailure{
				Index:   r.index,
				Company: prospects[r.index].Company,
				Error:   r.err.Error(),
			})
			continue
		}
		res.Counts.Add(r.record.Method)
		res.Emails = append(res.Emails, r.record)
	}

	res.Cancelled = ctx.Err() != nil && len(results) < len(prospects)
	res.FinishedAt = c.now().UTC()

	log.Info("batch finished",
		zap.Int("ai_fast", res.Counts.AIFast),
		zap.Int("ai_slow", res.Counts.AISlow),
		zap.Int("fallback", res.Counts.Fallback),
		zap.Int("failed", res.Counts.Failed),
		zap.Bool("cancelled", res.Cancelled),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res
}

// process turns one prospect into an email record. Panics are recovered so
// one bad record never aborts the batch.
func (c *Coordinator) process(ctx context.Context, batchID string, index int, p model.Prospect) (rec model.EmailRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("batch: record %d panicked: %v", index, r)
			zap.L().Error("record panicked", zap.Int("index", index), zap.String("company", p.Company), zap.Any("panic", r))
		}
	}()

	if err := p.Validate(); err != nil {
		return rec, eris.Wrapf(err, "batch: record %d", index)
	}

	out := c.gen.Generate(ctx, p)
	subject, body := compose.Assemble(p, out.Entry, out.Fields, c.opts.Sender)

	return model.EmailRecord{
		ID:          uuid.NewString(),
		BatchID:     batchID,
		Index:       index,
		Prospect:    p,
		Category:    string(out.Entry.Key),
		Subject:     subject,
		Body:        body,
		Method:      out.Method,
		Attempts:    out.Attempts,
		GeneratedAt: c.now().UTC(),
		Elapsed:     out.Elapsed,
	}, nil
}

func (c *Coordinator) observe(rec model.EmailRecord, err error) {
	if err != nil {
		c.metrics.ObserveGeneration(model.MethodFailed, 0)
		return
	}
	c.metrics.ObserveGeneration(rec.Method, rec.Elapsed)
}

func (c *Coordinator) emit(events chan<- model.ProgressEvent, ev model.ProgressEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
		zap.L().Debug("progress event dropped", zap.Int("current", ev.Current))
	}
}

func progressEvent(done, total, index int, p model.Prospect, rec model.EmailRecord, err error) model.ProgressEvent {
	ev := model.ProgressEvent{
		Current: done,
		Total:   total,
		Index:   index,
		Company: p.Company,
		Method:  rec.Method,
	}
	if err != nil {
		ev.Method = model.MethodFailed
		ev.Message = fmt.Sprintf("Failed %d/%d: %s", done, total, err)
		return ev
	}
	ev.Message = fmt.Sprintf("Generated %d/%d for %s (%s)", done, total, p.Company, rec.Method)
	return ev
}
