// Package engine decides, per prospect, whether the email lines come from a
// fast model call, a slow retry, or the deterministic template fallback.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/parse"
	"github.com/sells-group/outreach-cli/internal/prompt"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/taxonomy"
)

var (
	// ErrEmptyResponse is returned for a successful call with no text.
	ErrEmptyResponse = eris.New("engine: empty generation response")
	// ErrUnparseable is returned when no strategy found anything usable.
	ErrUnparseable = eris.New("engine: generation response not parseable")
)

// MaxRounds bounds the fast/slow retry loop.
const MaxRounds = 3

// Options configures an Engine.
type Options struct {
	FastTimeout time.Duration
	SlowTimeout time.Duration
	// Rounds is how many fast+slow pairs run before falling back (1..MaxRounds).
	Rounds  int
	Circuit resilience.CircuitBreakerConfig
	Warmup  resilience.RetryConfig
	// WarmupTimeout bounds each availability probe.
	WarmupTimeout time.Duration
}

// DefaultOptions returns 15s/60s deadlines with a single round.
func DefaultOptions() Options {
	return Options{
		FastTimeout:   15 * time.Second,
		SlowTimeout:   60 * time.Second,
		Rounds:        1,
		Circuit:       resilience.FromCircuitConfig(3, 60),
		Warmup:        resilience.FromRetryConfig(3, 0, 0),
		WarmupTimeout: 3 * time.Second,
	}
}

// OptionsFromConfig maps the generation config section to engine options.
func OptionsFromConfig(cfg config.GenerationConfig) Options {
	opts := DefaultOptions()
	if cfg.FastTimeoutSecs > 0 {
		opts.FastTimeout = cfg.FastTimeout()
	}
	if cfg.SlowTimeoutSecs > 0 {
		opts.SlowTimeout = cfg.SlowTimeout()
	}
	if cfg.Rounds > 0 {
		opts.Rounds = cfg.Rounds
	}
	opts.Circuit = resilience.FromCircuitConfig(cfg.CircuitThreshold, cfg.CircuitResetSecs)
	opts.Warmup = resilience.FromRetryConfig(cfg.WarmupAttempts, 0, 0)
	if cfg.WarmupTimeoutSecs > 0 {
		opts.WarmupTimeout = time.Duration(cfg.WarmupTimeoutSecs) * time.Second
	}
	return opts
}

// AttemptRecorder observes every remote attempt.
type AttemptRecorder interface {
	ObserveAttempt(stage model.Stage, ok bool)
}

// Outcome is the result of one Generate call. Fields are always non-empty
// and end in terminal punctuation.
type Outcome struct {
	Method   model.Method
	Entry    taxonomy.Entry
	Fields   parse.Fields
	Attempts []model.Attempt
	Elapsed  time.Duration
}

// Engine runs the per-prospect state machine
// TryFast -> TrySlow (-> TryFast -> TrySlow ...) -> Fallback.
// It is safe for concurrent use. The circuit breaker is shared and counts
// whole records: it decides whether a prospect calls the model at all, never
// whether an admitted prospect gets its slow attempt.
type Engine struct {
	gen      Generator
	opts     Options
	breaker  *resilience.CircuitBreaker
	recorder AttemptRecorder
}

// New creates an Engine. A nil gen runs offline: every prospect takes the
// fallback path without any remote call.
func New(gen Generator, opts Options) *Engine {
	def := DefaultOptions()
	if opts.FastTimeout <= 0 {
		opts.FastTimeout = def.FastTimeout
	}
	if opts.SlowTimeout <= 0 {
		opts.SlowTimeout = def.SlowTimeout
	}
	if opts.Rounds < 1 {
		opts.Rounds = 1
	}
	if opts.Rounds > MaxRounds {
		opts.Rounds = MaxRounds
	}
	if opts.WarmupTimeout <= 0 {
		opts.WarmupTimeout = def.WarmupTimeout
	}

	circuit := opts.Circuit
	circuit.ShouldTrip = resilience.IsTransient
	circuit.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("generation circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Engine{
		gen:     gen,
		opts:    opts,
		breaker: resilience.NewCircuitBreaker(circuit),
	}
}

// SetRecorder installs an attempt observer. Call before Generate.
func (e *Engine) SetRecorder(r AttemptRecorder) {
	e.recorder = r
}

// Offline reports whether the engine has no generator.
func (e *Engine) Offline() bool { return e.gen == nil }

// CircuitState exposes the breaker state for status output.
func (e *Engine) CircuitState() resilience.CircuitState { return e.breaker.State() }

// Generate produces the three customized lines for p. It never fails; the
// worst case is the taxonomy fallback. Total time is bounded by
// Rounds * (FastTimeout + SlowTimeout).
func (e *Engine) Generate(ctx context.Context, p model.Prospect) Outcome {
	start := time.Now()
	entry := taxonomy.ForCategory(p.Category)
	out := Outcome{Entry: entry}

	if e.gen != nil {
		if e.breaker.Allow() {
			err := e.tryModel(ctx, p, entry, &out)
			if ctx.Err() != nil {
				// Cancellation says nothing about the model server.
				e.breaker.Release()
			} else {
				e.breaker.Done(err)
			}
			if err == nil {
				out.Elapsed = time.Since(start)
				return out
			}
		} else {
			out.Attempts = append(out.Attempts, model.Attempt{
				Round: 1,
				Stage: model.StageTryFast,
				Error: resilience.ErrCircuitOpen.Error(),
			})
		}
	}

	out.Method = model.MethodFallback
	out.Fields = fallbackFields(entry, p.Company)
	out.Elapsed = time.Since(start)
	zap.L().Info("using template fallback",
		zap.String("company", p.Company),
		zap.String("category", string(entry.Key)),
		zap.Int("attempts", len(out.Attempts)),
	)
	return out
}

// tryModel runs the fast/slow rounds for one prospect. Once admitted by the
// breaker, every attempt of the record reaches the model. The returned error
// is the last attempt's, and is nil when a stage produced usable lines.
func (e *Engine) tryModel(ctx context.Context, p model.Prospect, entry taxonomy.Entry, out *Outcome) error {
	text := prompt.Build(p, entry)
	var err error
	for round := 1; round <= e.opts.Rounds; round++ {
		for _, stage := range []model.Stage{model.StageTryFast, model.StageTrySlow} {
			var fields parse.Fields
			var att model.Attempt
			fields, att, err = e.attempt(ctx, round, stage, text, p.Company)
			out.Attempts = append(out.Attempts, att)
			if err == nil {
				out.Method = methodFor(stage)
				out.Fields = fields
				return nil
			}
			if !escalates(err) || ctx.Err() != nil {
				return err
			}
		}
	}
	return err
}

// escalates reports whether a failed attempt moves on to the next stage.
// Any failed remote call does; a reply that arrived but was empty or
// unusable goes straight to the fallback.
func escalates(err error) bool {
	return !errors.Is(err, ErrEmptyResponse) && !errors.Is(err, ErrUnparseable)
}

func (e *Engine) attempt(ctx context.Context, round int, stage model.Stage, text, company string) (parse.Fields, model.Attempt, error) {
	deadline := e.opts.FastTimeout
	if stage == model.StageTrySlow {
		deadline = e.opts.SlowTimeout
	}
	att := model.Attempt{Round: round, Stage: stage, Deadline: deadline}

	actx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	began := time.Now()
	raw, err := e.gen.Generate(actx, text)
	att.Elapsed = time.Since(began)

	var fields parse.Fields
	if err == nil {
		if strings.TrimSpace(raw) == "" {
			err = ErrEmptyResponse
		} else if fields = parse.Parse(raw, company); fields.Defaulted() {
			err = ErrUnparseable
		}
	}

	if e.recorder != nil {
		e.recorder.ObserveAttempt(stage, err == nil)
	}
	if err != nil {
		att.Error = err.Error()
		zap.L().Warn("generation attempt failed",
			zap.String("company", company),
			zap.Int("attempt", round),
			zap.String("stage", string(stage)),
			zap.Int64("deadline_ms", deadline.Milliseconds()),
			zap.Int64("elapsed_ms", att.Elapsed.Milliseconds()),
			zap.Bool("transient", resilience.IsTransient(err)),
			zap.Error(err),
		)
		return parse.Fields{}, att, err
	}
	return fields, att, nil
}

// Warmup probes the generator before a batch so the first record does not
// pay the model load time inside its fast deadline. Generators without a
// Pinger, and offline engines, return nil.
func (e *Engine) Warmup(ctx context.Context) error {
	p, ok := e.gen.(Pinger)
	if !ok {
		return nil
	}
	cfg := e.opts.Warmup
	cfg.OnRetry = resilience.RetryLogger("generator", "warmup")
	return resilience.Do(ctx, cfg, func(c context.Context) error {
		pctx, cancel := context.WithTimeout(c, e.opts.WarmupTimeout)
		defer cancel()
		return p.Ping(pctx)
	})
}

func methodFor(stage model.Stage) model.Method {
	if stage == model.StageTryFast {
		return model.MethodAIFast
	}
	return model.MethodAISlow
}

func fallbackFields(entry taxonomy.Entry, company string) parse.Fields {
	var f parse.Fields
	f.Opening, f.Benefit, f.Action = entry.Fallback(company)
	for i := range f.Sources {
		f.Sources[i] = parse.SourceDefault
	}
	return f
}
