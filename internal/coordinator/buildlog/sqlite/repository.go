// Package sqlite provides the SQLite-backed build log repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/karigari/order-engine/internal/coordinator/buildlog"
	"github.com/karigari/order-engine/internal/pkg/sqlitedb"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_build_logs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    order_number   TEXT NOT NULL,
    status         TEXT NOT NULL,
    current_step   TEXT NOT NULL DEFAULT '',
    payload        TEXT,
    error_messages TEXT NOT NULL DEFAULT '[]',
    trace_id       TEXT NOT NULL DEFAULT '',
    span_id        TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_build_logs_order
    ON order_build_logs(order_number, created_at);

CREATE INDEX IF NOT EXISTS idx_build_logs_trace
    ON order_build_logs(trace_id);
`

type Repository struct {
	db *sql.DB
}

// New applies the build-log schema and returns the repository.
func New(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite: apply build log schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Save inserts a new log row. Safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *buildlog.Entry) error {
	const q = `
		INSERT INTO order_build_logs
			(order_number, status, current_step, payload, error_messages,
			 trace_id, span_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderNumber,
		string(entry.Status),
		entry.CurrentStep,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		sqlitedb.FormatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save build log for %q: %w", entry.OrderNumber, err)
	}
	return nil
}

// Latest returns the most recent row for an order number, nil when none.
func (r *Repository) Latest(ctx context.Context, orderNumber string) (*buildlog.Entry, error) {
	const q = `
		SELECT order_number, status, current_step, COALESCE(payload,''),
		       error_messages, trace_id, span_id, created_at
		FROM   order_build_logs
		WHERE  order_number = ?
		ORDER  BY created_at DESC, id DESC
		LIMIT  1`

	row := r.db.QueryRowContext(ctx, q, orderNumber)

	var entry buildlog.Entry
	var createdAt string
	err := row.Scan(
		&entry.OrderNumber,
		&entry.Status,
		&entry.CurrentStep,
		&entry.Payload,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest build log for %q: %w", orderNumber, err)
	}

	entry.CreatedAt, err = sqlitedb.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// nullableString stores NULL instead of empty TEXT so non-STARTED rows keep
// the payload column clean.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
