package model

import "time"

// Counts aggregates per-method outcomes for a batch.
type Counts struct {
	AIFast   int `json:"ai_fast_count"`
	AISlow   int `json:"ai_slow_count"`
	Fallback int `json:"fallback_count"`
	Failed   int `json:"failed_count"`
	Total    int `json:"total"`
}

// Add increments the counter for m and the total.
func (c *Counts) Add(m Method) {
	switch m {
	case MethodAIFast:
		c.AIFast++
	case MethodAISlow:
		c.AISlow++
	case MethodFallback:
		c.Fallback++
	default:
		c.Failed++
	}
	c.Total++
}

// RecordFailure describes a prospect that could not be turned into an email.
type RecordFailure struct {
	Index   int    `json:"index"`
	Company string `json:"company"`
	Error   string `json:"error"`
}

// BatchResult is the outcome of one generation run over a prospect list.
type BatchResult struct {
	ID         string          `json:"id"`
	Source     string          `json:"source,omitempty"`
	Counts     Counts          `json:"counts"`
	Emails     []EmailRecord   `json:"emails"`
	Failures   []RecordFailure `json:"failures,omitempty"`
	Cancelled  bool            `json:"cancelled"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Batch is the persisted summary of a BatchResult.
type Batch struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	Counts     Counts    `json:"counts"`
	Cancelled  bool      `json:"cancelled"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Summary returns the persisted view of the result.
func (r *BatchResult) Summary() Batch {
	return Batch{
		ID:         r.ID,
		Source:     r.Source,
		Counts:     r.Counts,
		Cancelled:  r.Cancelled,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// ProgressEvent is emitted after each prospect completes.
type ProgressEvent struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Index   int    `json:"index"`
	Company string `json:"company"`
	Method  Method `json:"method"`
	Message string `json:"message"`
}
