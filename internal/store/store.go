// Package store persists the enrollment roster, the face training corpus
// and the append-only attendance records. SQLite is the default backend;
// PostgreSQL is available for shared deployments.
package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veriface/veriface/internal/config"
)

type Store struct {
	conn   *sql.DB
	driver string
}

// New opens the configured database and ensures the schema exists.
func New(cfg config.DatabaseConfig) (*Store, error) {
	var conn *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite", "":
		conn, err = sql.Open("sqlite3", cfg.SQLitePath)
	case "postgres":
		conn, err = sql.Open("postgres", cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{conn: conn, driver: driverName(cfg.Driver)}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}

func (s *Store) createSchema() error {
	blob := "BLOB"
	if s.driver == "postgres" {
		blob = "BYTEA"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			name TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_samples (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL REFERENCES identities(name),
			vector %s NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`, blob),
		`CREATE TABLE IF NOT EXISTS attendance (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL,
			day TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_face_samples_identity ON face_samples(identity)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance(day)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// bind rewrites "?" placeholders to "$n" for the postgres driver.
func (s *Store) bind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
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

func (s *Store) Close() error {
	return s.conn.Close()
}
