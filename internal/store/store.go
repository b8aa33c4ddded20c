// Package store persists generated batches and their emails for review,
// sending and history export.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotFound is returned when a batch or email does not exist.
var ErrNotFound = eris.New("store: not found")

// EmailFilter specifies criteria for listing emails.
type EmailFilter struct {
	BatchID string `json:"batch_id,omitempty"`
	Sent    *bool  `json:"sent,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// DefaultLimit caps list queries without an explicit limit.
const DefaultLimit = 500

// Store defines the persistence interface for generated outreach.
type Store interface {
	// Batches
	SaveBatch(ctx context.Context, res *model.BatchResult) error
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context, limit int) ([]model.Batch, error)

	// Emails
	ListEmails(ctx context.Context, filter EmailFilter) ([]model.EmailRecord, error)
	GetEmail(ctx context.Context, id string) (*model.EmailRecord, error)
	UpdateEmailContent(ctx context.Context, id, subject, body string) error
	// MarkSent flags an unsent email as sent. It returns
	// model.ErrAlreadySent when the email was already sent.
	MarkSent(ctx context.Context, id string, at time.Time) error
	EmailStats(ctx context.Context) ([]model.EmailStat, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
