package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Method is the provenance tag recording which path produced an email.
type Method string

const (
	MethodAIFast   Method = "ai_fast"
	MethodAISlow   Method = "ai_slow"
	MethodFallback Method = "fallback"
	MethodFailed   Method = "failed"
)

// IsAI reports whether the method came from a remote generation call.
func (m Method) IsAI() bool {
	return m == MethodAIFast || m == MethodAISlow
}

// Stage identifies one step of the hybrid generation state machine.
type Stage string

const (
	StageTryFast  Stage = "try_fast"
	StageTrySlow  Stage = "try_slow"
	StageFallback Stage = "fallback"
)

// Attempt records a single remote generation attempt.
type Attempt struct {
	Round    int           `json:"round"`
	Stage    Stage         `json:"stage"`
	Deadline time.Duration `json:"deadline"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// OK reports whether the attempt produced usable text.
func (a Attempt) OK() bool { return a.Error == "" }

// ErrAlreadySent is returned when a record is sent or edited after sending.
var ErrAlreadySent = eris.New("email already sent")

// EmailRecord is a generated outreach email and its send state.
type EmailRecord struct {
	ID          string        `json:"id"`
	BatchID     string        `json:"batch_id"`
	Index       int           `json:"index"`
	Prospect    Prospect      `json:"prospect"`
	Category    string        `json:"category"`
	Subject     string        `json:"subject"`
	Body        string        `json:"body"`
	Method      Method        `json:"method"`
	Attempts    []Attempt     `json:"attempts,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Elapsed     time.Duration `json:"elapsed"`
	Sent        bool          `json:"sent"`
	SentAt      *time.Time    `json:"sent_at,omitempty"`
}

// Edit replaces the subject and body after human review.
func (r *EmailRecord) Edit(subject, body string) error {
	if r.Sent {
		return eris.Wrapf(ErrAlreadySent, "edit %s", r.ID)
	}
	r.Subject = subject
	r.Body = body
	return nil
}

// MarkSent flags the record as delivered. It succeeds at most once.
func (r *EmailRecord) MarkSent(at time.Time) error {
	if r.Sent {
		return eris.Wrapf(ErrAlreadySent, "mark sent %s", r.ID)
	}
	r.Sent = true
	r.SentAt = &at
	return nil
}

// EmailStat is the number of stored emails for one method and send state.
type EmailStat struct {
	Method Method `json:"method"`
	Sent   bool   `json:"sent"`
	Count  int    `json:"count"`
}
