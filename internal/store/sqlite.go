package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	ai_fast     INTEGER NOT NULL DEFAULT 0,
	ai_slow     INTEGER NOT NULL DEFAULT 0,
	fallback    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	cancelled   INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	id           TEXT PRIMARY KEY,
	batch_id     TEXT NOT NULL REFERENCES batches(id),
	idx          INTEGER NOT NULL,
	prospect     TEXT NOT NULL,
	category     TEXT NOT NULL,
	subject      TEXT NOT NULL,
	body         TEXT NOT NULL,
	method       TEXT NOT NULL,
	attempts     TEXT NOT NULL DEFAULT '[]',
	generated_at DATETIME NOT NULL,
	elapsed_ms   INTEGER NOT NULL DEFAULT 0,
	sent         INTEGER NOT NULL DEFAULT 0,
	sent_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_emails_batch_id ON emails(batch_id, idx);
CREATE INDEX IF NOT EXISTS idx_emails_sent ON emails(sent);
CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);
`

const emailColumns = `id, batch_id, idx, prospect, category, subject, body, method, attempts, generated_at, elapsed_ms, sent, sent_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, res *model.BatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save batch")
	}
	defer tx.Rollback() //nolint:errcheck

	c := res.Counts
	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, source, ai_fast, ai_slow, fallback, failed, total, cancelled, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Source, c.AIFast, c.AISlow, c.Fallback, c.Failed, c.Total, res.Cancelled,
		res.StartedAt.UTC(), res.FinishedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert batch %s", res.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO emails (`+emailColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert email")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range res.Emails {
		row, err := emailRow(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert email %s", e.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save batch")
}

func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, ai_fast, ai_slow, fallback, failed, total, cancelled, started_at, finished_at
		 FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "batch %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get batch %s", id)
	}
	return b, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, ai_fast, ai_slow, fallback, failed, total, cancelled, started_at, finished_at
		 FROM batches ORDER BY started_at DESC LIMIT ?`, limitOrDefault(limit))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close() //nolint:errcheck

	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		batches = append(batches, *b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

func (s *SQLiteStore) ListEmails(ctx context.Context, filter EmailFilter) ([]model.EmailRecord, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE 1=1`
	var args []any

	if filter.BatchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, filter.BatchID)
	}
	if filter.Sent != nil {
		query += ` AND sent = ?`
		args = append(args, *filter.Sent)
	}
	query += ` ORDER BY ` + emailOrder(filter) + ` LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list emails")
	}
	defer rows.Close() //nolint:errcheck

	var emails []model.EmailRecord
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *e)
	}
	return emails, eris.Wrap(rows.Err(), "sqlite: list emails iterate")
}

func (s *SQLiteStore) GetEmail(ctx context.Context, id string) (*model.EmailRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	e, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "email %s", id)
	}
	return e, err
}

func (s *SQLiteStore) UpdateEmailContent(ctx context.Context, id, subject, body string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE emails SET subject = ?, body = ? WHERE id = ? AND sent = 0`,
		subject, body, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update email %s", id)
	}
	return s.checkUnsentUpdate(ctx, res, id)
}

func (s *SQLiteStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE emails SET sent = 1, sent_at = ? WHERE id = ? AND sent = 0`,
		at.UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark sent %s", id)
	}
	return s.checkUnsentUpdate(ctx, res, id)
}

func (s *SQLiteStore) EmailStats(ctx context.Context) ([]model.EmailStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT method, sent, COUNT(*) FROM emails GROUP BY method, sent ORDER BY method, sent`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: email stats")
	}
	defer rows.Close() //nolint:errcheck

	var stats []model.EmailStat
	for rows.Next() {
		var st model.EmailStat
		if err := rows.Scan(&st.Method, &st.Sent, &st.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan email stat")
		}
		stats = append(stats, st)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: email stats iterate")
}

// checkUnsentUpdate distinguishes a missing email from one already sent
// when a conditional update touched no rows.
func (s *SQLiteStore) checkUnsentUpdate(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}
	var sent bool
	err = s.db.QueryRowContext(ctx, `SELECT sent FROM emails WHERE id = ?`, id).Scan(&sent)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "email %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: lookup email %s", id)
	}
	return eris.Wrapf(model.ErrAlreadySent, "email %s", id)
}

// helpers

// emailOrder keeps a single batch in input order and lists mixed batches
// newest first.
func emailOrder(filter EmailFilter) string {
	if filter.BatchID != "" {
		return "idx ASC"
	}
	return "generated_at DESC, idx ASC"
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBatch(row scannable) (*model.Batch, error) {
	var b model.Batch
	c := &b.Counts
	err := row.Scan(&b.ID, &b.Source, &c.AIFast, &c.AISlow, &c.Fallback, &c.Failed, &c.Total,
		&b.Cancelled, &b.StartedAt, &b.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanEmail(row scannable) (*model.EmailRecord, error) {
	var (
		e            model.EmailRecord
		prospectJSON string
		attemptsJSON string
		elapsedMs    int64
		sentAt       sql.NullTime
	)
	err := row.Scan(&e.ID, &e.BatchID, &e.Index, &prospectJSON, &e.Category, &e.Subject, &e.Body,
		&e.Method, &attemptsJSON, &e.GeneratedAt, &elapsedMs, &e.Sent, &sentAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan email")
	}
	if err := decodeEmailJSON(&e, []byte(prospectJSON), []byte(attemptsJSON)); err != nil {
		return nil, err
	}
	e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	if sentAt.Valid {
		t := sentAt.Time.UTC()
		e.SentAt = &t
	}
	return &e, nil
}

// emailRow returns the insert arguments for e in emailColumns order.
func emailRow(e model.EmailRecord) ([]any, error) {
	prospectJSON, err := json.Marshal(e.Prospect)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal prospect")
	}
	attempts := e.Attempts
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	attemptsJSON, err := json.Marshal(attempts)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal attempts")
	}
	var sentAt *time.Time
	if e.SentAt != nil {
		t := e.SentAt.UTC()
		sentAt = &t
	}
	return []any{
		e.ID, e.BatchID, e.Index, string(prospectJSON), e.Category, e.Subject, e.Body,
		string(e.Method), string(attemptsJSON), e.GeneratedAt.UTC(), e.Elapsed.Milliseconds(),
		e.Sent, sentAt,
	}, nil
}

func decodeEmailJSON(e *model.EmailRecord, prospectJSON, attemptsJSON []byte) error {
	if err := json.Unmarshal(prospectJSON, &e.Prospect); err != nil {
		return eris.Wrap(err, "store: unmarshal prospect")
	}
	if len(attemptsJSON) > 0 {
		if err := json.Unmarshal(attemptsJSON, &e.Attempts); err != nil {
			return eris.Wrap(err, "store: unmarshal attempts")
		}
	}
	if len(e.Attempts) == 0 {
		e.Attempts = nil
	}
	return nil
}
