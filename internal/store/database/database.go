package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the relational client/site roster.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the roster database. driver is "sqlite" or "postgres".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	// A single connection keeps ":memory:" databases alive and serializes
	// sqlite writers.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	return &Store{db: db, driver: driver}, nil
}

// Driver returns the driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EnsureSchema creates the roster tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "SERIAL PRIMARY KEY"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id ` + id + `,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sites (
			id ` + id + `,
			client_id INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			api_token TEXT NOT NULL DEFAULT '',
			UNIQUE (client_id, slug)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sites_client ON sites(client_id)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
