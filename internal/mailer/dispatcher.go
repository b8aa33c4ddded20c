package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrDuplicateDelivery means the message went out but the record had been
// marked sent by another sender in the meantime, so the prospect received
// it twice.
var ErrDuplicateDelivery = eris.New("mailer: email delivered twice")

// Store is the persistence the dispatcher needs. store.Store implements it.
type Store interface {
	GetEmail(ctx context.Context, id string) (*model.EmailRecord, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
}

// Report summarizes a SendAll run.
type Report struct {
	Sent     int                   `json:"sent"`
	Failed   int                   `json:"failed"`
	Skipped  int                   `json:"skipped"`
	Failures []model.RecordFailure `json:"failures,omitempty"`
	// Duplicates counts sends that raced another sender; they are also in Sent.
	Duplicates int `json:"duplicates,omitempty"`
	// Cancelled is set when ctx ended before every record was attempted.
	Cancelled bool `json:"cancelled"`
}

// Dispatcher sends stored email records and marks them sent.
type Dispatcher struct {
	sender   Sender
	store    Store
	from     string
	fromName string
	pause    time.Duration
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. The from name falls back to the
// sender company name. rec may be nil.
func NewDispatcher(sender Sender, st Store, cfg *config.Config, rec *metrics.Recorder) *Dispatcher {
	fromName := cfg.Email.FromName
	if fromName == "" {
		fromName = cfg.Company.Name
	}
	return &Dispatcher{
		sender:   sender,
		store:    st,
		from:     cfg.Email.FromEmail,
		fromName: fromName,
		pause:    time.Duration(cfg.Send.PauseMs) * time.Millisecond,
		metrics:  rec,
		now:      time.Now,
	}
}

// MessageFor builds the outgoing message for rec.
func (d *Dispatcher) MessageFor(rec model.EmailRecord) Message {
	return Message{
		FromAddress: d.from,
		FromName:    d.fromName,
		To:          rec.Prospect.Email,
		Subject:     rec.Subject,
		Body:        rec.Body,
	}
}

// Deliver sends rec once and reports success. Failures are logged, never
// retried.
func (d *Dispatcher) Deliver(ctx context.Context, rec model.EmailRecord) bool {
	if err := d.deliver(ctx, rec); err != nil && !errors.Is(err, ErrDuplicateDelivery) {
		zap.L().Warn("mailer: deliver failed",
			zap.String("email_id", rec.ID),
			zap.String("to", rec.Prospect.Email),
			zap.Error(err),
		)
		return false
	}
	return true
}

// SendByID loads, sends and marks one stored email.
func (d *Dispatcher) SendByID(ctx context.Context, id string) (*model.EmailRecord, error) {
	rec, err := d.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Sent {
		return nil, eris.Wrapf(model.ErrAlreadySent, "email %s", id)
	}
	if err := d.deliver(ctx, *rec); err != nil && !errors.Is(err, ErrDuplicateDelivery) {
		return nil, err
	}
	updated, err := d.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SendAll sends every unsent record in order, pausing between sends.
// Already-sent records are skipped and failures do not stop the run.
func (d *Dispatcher) SendAll(ctx context.Context, records []model.EmailRecord) Report {
	limit := rate.Inf
	if d.pause > 0 {
		limit = rate.Every(d.pause)
	}
	limiter := rate.NewLimiter(limit, 1)

	var rep Report
	for _, rec := range records {
		if rec.Sent {
			rep.Skipped++
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			rep.Cancelled = true
			break
		}

		err := d.deliver(ctx, rec)
		switch {
		case err == nil:
			rep.Sent++
		case errors.Is(err, ErrDuplicateDelivery):
			rep.Sent++
			rep.Duplicates++
		case errors.Is(err, model.ErrAlreadySent):
			rep.Skipped++
		default:
			rep.Failed++
			rep.Failures = append(rep.Failures, model.RecordFailure{
				Index:   rec.Index,
				Company: rec.Prospect.Company,
				Error:   err.Error(),
			})
		}
	}

	zap.L().Info("mailer: send complete",
		zap.Int("sent", rep.Sent),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("duplicates", rep.Duplicates),
		zap.Bool("cancelled", rep.Cancelled),
	)
	return rep
}

// deliver re-reads rec, sends it and marks it sent. A record already sent
// by the time it is re-read returns ErrAlreadySent without sending. One
// marked sent by someone else while this send was in flight returns
// ErrDuplicateDelivery.
func (d *Dispatcher) deliver(ctx context.Context, rec model.EmailRecord) error {
	current, err := d.store.GetEmail(ctx, rec.ID)
	if err != nil {
		return eris.Wrapf(err, "mailer: load %s", rec.ID)
	}
	if current.Sent {
		return eris.Wrapf(model.ErrAlreadySent, "email %s", rec.ID)
	}

	err = d.sender.Send(ctx, d.MessageFor(rec))
	d.metrics.ObserveSend(err == nil)
	if err != nil {
		return eris.Wrapf(err, "mailer: send %s", rec.ID)
	}

	// The message is out; record it even if ctx ended meanwhile.
	if err := d.store.MarkSent(context.WithoutCancel(ctx), rec.ID, d.now().UTC()); err != nil {
		if errors.Is(err, model.ErrAlreadySent) {
			zap.L().Error("mailer: duplicate delivery, email was marked sent by another sender",
				zap.String("email_id", rec.ID),
				zap.String("to", rec.Prospect.Email),
			)
			return eris.Wrapf(ErrDuplicateDelivery, "email %s", rec.ID)
		}
		return err
	}
	return nil
}
