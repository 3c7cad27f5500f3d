package ledger

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS notifications (
	message_id TEXT PRIMARY KEY,
	sender TEXT NOT NULL,
	subject TEXT NOT NULL,
	matched TEXT NOT NULL,
	notified_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_notified_at ON notifications(notified_at);
`

type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open ledger DB")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create ledger schema")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ledger DB ping failed")
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Seen(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE message_id = ?`, id).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "unable to read notification ledger")
	}
	return n > 0, nil
}

func (s *SQLite) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO notifications (message_id, sender, subject, matched, notified_at) VALUES (?, ?, ?, ?, ?)`,
		entry.MessageId, entry.From, entry.Subject, strings.Join(entry.Matched, ","), entry.NotifiedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "unable to write notification ledger")
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, sender, subject, matched, notified_at FROM notifications ORDER BY notified_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read notification ledger")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			matched string
			at      time.Time
		)
		if err := rows.Scan(&e.MessageId, &e.From, &e.Subject, &matched, &at); err != nil {
			return nil, errors.Wrap(err, "unable to scan ledger entry")
		}
		if matched != "" {
			e.Matched = strings.Split(matched, ",")
		}
		e.NotifiedAt = at
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
