// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. The same package serves file databases in production and
// ":memory:" databases in tests.
//
// CONCURRENT WRITES:
// net/http runs every request on its own goroutine and sql.DB hands each one
// its own connection. SQLite allows a single writer at a time; a second
// connection that tries to write while the lock is held gets SQLITE_BUSY
// straight away unless a busy timeout is set. New therefore adds
// busy_timeout to every DSN, so overlapping INSERT/UPDATE/DELETE statements
// queue up inside SQLite for up to BusyTimeout instead of failing with
// "database is locked".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/users-api/internal/model"
)

// BusyTimeout is how long a connection waits for another writer to release
// the database lock before the statement fails with SQLITE_BUSY.
const BusyTimeout = 5 * time.Second

// DB wraps a sql.DB connection pool and implements repository.UserRepository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dsn and creates the users table if it is
// missing.
//
// dsn examples:
//   - "data/users.db"         → file-based database (persistent)
//   - ":memory:"              → in-memory database, lost on Close
//   - "file:test.db?mode=rwc" → URI filename with query options
//
// CONNECTION POOL:
// sql.Open does not connect yet, it only sets up the pool. PingContext forces
// the first connection so a bad path or missing permission shows up here
// instead of on the first request.
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", withBusyTimeout(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database. Pinning
	// the pool to one connection makes all requests share the same data.
	if isMemory(dsn) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", classify(err))
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the users table. CREATE TABLE IF NOT EXISTS makes it safe
// to run on every start.
//
// The CHECK constraints mirror the VARCHAR lengths, which SQLite otherwise
// ignores, so an over-long value fails here exactly as it does on PostgreSQL.
// AUTOINCREMENT guarantees ids of deleted rows are never handed out again.
func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name VARCHAR(%[1]d) NOT NULL UNIQUE CHECK (length(first_name) <= %[1]d),
			last_name  VARCHAR(%[2]d) NOT NULL UNIQUE CHECK (length(last_name) <= %[2]d),
			username   VARCHAR(%[3]d) NOT NULL UNIQUE CHECK (length(username) <= %[3]d),
			email      VARCHAR(%[4]d) NOT NULL UNIQUE CHECK (length(email) <= %[4]d)
		);
	`, model.MaxFirstNameLength, model.MaxLastNameLength, model.MaxUsernameLength, model.MaxEmailLength))
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}
	return nil
}

// withBusyTimeout appends the busy_timeout pragma to dsn. modernc runs every
// _pragma query parameter on each new connection, so the whole pool gets it.
// A DSN that already sets busy_timeout is left alone.
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, BusyTimeout.Milliseconds())
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}
