// Package sqlitedb opens the engine's SQLite database.
//
// WAL mode is enabled so readers never block writers and vice versa; the
// request handlers read while the build saga writes. We use modernc.org/sqlite
// instead of mattn/go-sqlite3 to avoid CGO requirements, which keeps Docker
// builds (Alpine) simple.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at the given path.
//
// The pure-Go driver uses _pragma query parameters to configure connection
// state. WAL enables concurrent readers, foreign_keys enforces integrity,
// busy_timeout waits for locks instead of failing immediately.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	return db, nil
}

// ParseTime parses the timestamp strings stored in SQLite.
// SQLite has no native datetime type; we store RFC3339 TEXT.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

// FormatTime renders a timestamp the way ParseTime expects it back.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
