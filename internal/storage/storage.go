// Package storage opens the user store selected by a database URL.
//
// URLs follow the SQLAlchemy conventions so an existing DB_URL keeps working:
//
//	postgres://u:p@host/db           PostgreSQL (also postgresql://, postgresql+psycopg2://)
//	sqlite://                        in-memory SQLite
//	sqlite:///relative/path.db       SQLite file relative to the working directory
//	sqlite:////absolute/path.db      SQLite file at an absolute path
//	:memory: or file:...             passed to SQLite unchanged
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/users-api/internal/repository"
	"github.com/sakif/users-api/internal/repository/postgres"
	"github.com/sakif/users-api/internal/repository/sqlite"
)

// Backend names a supported database.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Store is a user repository that owns its connection pool. Both backends
// ping the database while opening, so a Store returned by Open is connected.
type Store interface {
	repository.UserRepository
	Close() error
}

// Open parses rawURL and connects to the matching backend. The users table is
// created if it does not exist yet.
func Open(ctx context.Context, rawURL string) (Store, error) {
	backend, dsn, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	var store Store
	switch backend {
	case BackendPostgres:
		store, err = postgres.New(ctx, dsn)
	default:
		store, err = sqlite.New(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ParseURL returns the backend selected by rawURL and the data source name
// to hand to its driver.
func ParseURL(rawURL string) (Backend, string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", "", fmt.Errorf("storage: empty database URL")
	}

	if raw == ":memory:" || strings.HasPrefix(raw, "file:") {
		return BackendSQLite, raw, nil
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", fmt.Errorf("storage: database URL %q has no scheme", rawURL)
	}
	// "postgresql+psycopg2" → "postgresql"
	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch dialect {
	case "postgres", "postgresql":
		return BackendPostgres, "postgres://" + rest, nil
	case "sqlite":
		return BackendSQLite, sqlitePath(rest), nil
	}
	return "", "", fmt.Errorf("storage: unsupported database %q", dialect)
}

// sqlitePath converts the part after "sqlite://" to a modernc DSN.
// The host part is always empty, so rest starts with the "/" that precedes
// the path, or is empty for an in-memory database.
func sqlitePath(rest string) string {
	path, query, _ := strings.Cut(rest, "?")
	path = strings.TrimPrefix(path, "/")

	if path == "" || path == ":memory:" {
		if query != "" {
			return "file::memory:?" + query
		}
		return ":memory:"
	}
	if query != "" {
		return "file:" + path + "?" + query
	}
	return path
}
