// Package sqlite implements repository.PostRepository on an embedded SQLite
// database. It is the alternative to the JSON file store (STORE_DRIVER=sqlite)
// and keeps exactly the same contract: newest-first listing, store-assigned
// IDs and timestamps, and ownership checks run inside the write transaction.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// SERIALIZATION:
// The pool is capped at one open connection. Every transaction therefore runs
// alone, which is the SQLite equivalent of the file store's exclusive lock,
// and ":memory:" databases stay a single database instead of one per
// connection.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) works.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithClock replaces time.Now for the timestamps the store assigns.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// New opens the database at dbPath and creates the posts table if needed.
//
// dbPath examples:
//   - "data/posts.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests, lost on close)
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers keep reading while the single writer commits.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// createSchema creates the posts table. CREATE ... IF NOT EXISTS makes it
// safe to run on every start.
func (db *DB) createSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			author     TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}
	return nil
}
