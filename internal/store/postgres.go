package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/db"
	"github.com/sells-group/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. It lets several operators
// share one review history.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	ai_fast     INTEGER NOT NULL DEFAULT 0,
	ai_slow     INTEGER NOT NULL DEFAULT 0,
	fallback    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	cancelled   BOOLEAN NOT NULL DEFAULT false,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	id           TEXT PRIMARY KEY,
	batch_id     TEXT NOT NULL REFERENCES batches(id),
	idx          INTEGER NOT NULL,
	prospect     JSONB NOT NULL,
	category     TEXT NOT NULL,
	subject      TEXT NOT NULL,
	body         TEXT NOT NULL,
	method       TEXT NOT NULL,
	attempts     JSONB NOT NULL DEFAULT '[]',
	generated_at TIMESTAMPTZ NOT NULL,
	elapsed_ms   BIGINT NOT NULL DEFAULT 0,
	sent         BOOLEAN NOT NULL DEFAULT false,
	sent_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_emails_batch_id ON emails(batch_id, idx);
CREATE INDEX IF NOT EXISTS idx_emails_sent ON emails(sent);
CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at DESC);
`

var emailCopyColumns = []string{
	"id", "batch_id", "idx", "prospect", "category", "subject", "body",
	"method", "attempts", "generated_at", "elapsed_ms", "sent", "sent_at",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveBatch inserts the batch row and bulk-copies its emails in one
// transaction.
func (s *PostgresStore) SaveBatch(ctx context.Context, res *model.BatchResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	c := res.Counts
	_, err = tx.Exec(ctx,
		`INSERT INTO batches (id, source, ai_fast, ai_slow, fallback, failed, total, cancelled, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ID, res.Source, c.AIFast, c.AISlow, c.Fallback, c.Failed, c.Total, res.Cancelled,
		res.StartedAt.UTC(), res.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert batch %s", res.ID)
	}

	rows := make([][]any, 0, len(res.Emails))
	for _, e := range res.Emails {
		row, err := emailRow(e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if _, err := db.CopyFrom(ctx, tx, "emails", emailCopyColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy emails for batch %s", res.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save batch")
}

func (s *PostgresStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, ai_fast, ai_slow, fallback, failed, total, cancelled, started_at, finished_at
		 FROM batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "batch %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get batch %s", id)
	}
	return b, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, ai_fast, ai_slow, fallback, failed, total, cancelled, started_at, finished_at
		 FROM batches ORDER BY started_at DESC LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

func (s *PostgresStore) ListEmails(ctx context.Context, filter EmailFilter) ([]model.EmailRecord, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE true`
	args := []any{}
	argIdx := 1

	if filter.BatchID != "" {
		query += fmt.Sprintf(` AND batch_id = $%d`, argIdx)
		args = append(args, filter.BatchID)
		argIdx++
	}
	if filter.Sent != nil {
		query += fmt.Sprintf(` AND sent = $%d`, argIdx)
		args = append(args, *filter.Sent)
		argIdx++
	}
	query += ` ORDER BY ` + emailOrder(filter)
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list emails")
	}
	defer rows.Close()

	var emails []model.EmailRecord
	for rows.Next() {
		e, err := scanPgEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *e)
	}
	return emails, eris.Wrap(rows.Err(), "postgres: list emails iterate")
}

func (s *PostgresStore) GetEmail(ctx context.Context, id string) (*model.EmailRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id)
	e, err := scanPgEmail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "email %s", id)
	}
	return e, err
}

func (s *PostgresStore) UpdateEmailContent(ctx context.Context, id, subject, body string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE emails SET subject = $1, body = $2 WHERE id = $3 AND sent = false`,
		subject, body, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update email %s", id)
	}
	return s.checkUnsentUpdate(ctx, tag, id)
}

func (s *PostgresStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE emails SET sent = true, sent_at = $1 WHERE id = $2 AND sent = false`,
		at.UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark sent %s", id)
	}
	return s.checkUnsentUpdate(ctx, tag, id)
}

func (s *PostgresStore) EmailStats(ctx context.Context) ([]model.EmailStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT method, sent, COUNT(*) FROM emails GROUP BY method, sent ORDER BY method, sent`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: email stats")
	}
	defer rows.Close()

	var stats []model.EmailStat
	for rows.Next() {
		var (
			st    model.EmailStat
			count int64
		)
		if err := rows.Scan(&st.Method, &st.Sent, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan email stat")
		}
		st.Count = int(count)
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: email stats iterate")
}

func (s *PostgresStore) checkUnsentUpdate(ctx context.Context, tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var sent bool
	err := s.pool.QueryRow(ctx, `SELECT sent FROM emails WHERE id = $1`, id).Scan(&sent)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "email %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: lookup email %s", id)
	}
	return eris.Wrapf(model.ErrAlreadySent, "email %s", id)
}

func scanPgEmail(row scannable) (*model.EmailRecord, error) {
	var (
		e            model.EmailRecord
		prospectJSON []byte
		attemptsJSON []byte
		elapsedMs    int64
		sentAt       *time.Time
	)
	err := row.Scan(&e.ID, &e.BatchID, &e.Index, &prospectJSON, &e.Category, &e.Subject, &e.Body,
		&e.Method, &attemptsJSON, &e.GeneratedAt, &elapsedMs, &e.Sent, &sentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan email")
	}
	if err := decodeEmailJSON(&e, prospectJSON, attemptsJSON); err != nil {
		return nil, err
	}
	e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if sentAt != nil {
		t := sentAt.UTC()
		e.SentAt = &t
	}
	return &e, nil
}
