package buildlog

import "context"

// Repository is the port for persisting build log entries. The coordinator
// depends on this abstraction so tests can swap in an in-memory recorder.
type Repository interface {
	// Save appends a row; the log is append-only, never upserted.
	Save(ctx context.Context, entry *Entry) error

	// Latest returns the most recent entry for an order number, or nil when
	// none exists. Used by the reconciliation query after a crash.
	Latest(ctx context.Context, orderNumber string) (*Entry, error)
}
