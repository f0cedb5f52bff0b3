// Package store persists products and orders in sqlite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrOrderNotFound is returned when an order id does not resolve. It is
	// the only fatal error the receipt pipeline surfaces to callers.
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound is returned when a product id does not resolve.
	ErrProductNotFound = errors.New("product not found")
)

// Store wraps the sqlite database. Safe for concurrent use; sqlite's write
// lock is mediated by the busy timeout.
type Store struct {
	db *sql.DB
}

// Product is one catalog entry. Image and Videos hold comma-separated media
// filenames, the layout the admin upload flow writes.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Stock       int    `json:"stock"`
	Image       string `json:"image,omitempty"`
	Videos      string `json:"videos,omitempty"`
}

// Order is one persisted purchase. Products holds the encoded line-item
// string written by orderformat.Encode at checkout; the receipt subsystem
// only ever reads it back through orderformat.Decode.
type Order struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Location   string    `json:"location,omitempty"`
	Products   string    `json:"products"`
	TotalPrice int64     `json:"total_price"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_loc=auto", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL,
			price       INTEGER NOT NULL DEFAULT 0,
			description TEXT    NOT NULL DEFAULT '',
			stock       INTEGER NOT NULL DEFAULT 0,
			image       TEXT    NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL,
			phone       TEXT    NOT NULL,
			address     TEXT    NOT NULL DEFAULT '',
			location    TEXT    NOT NULL DEFAULT '',
			products    TEXT    NOT NULL DEFAULT '',
			total_price INTEGER NOT NULL DEFAULT 0,
			status      TEXT    NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// The videos column arrived after the first deployments; older database
	// files gain it here instead of failing.
	return s.ensureVideosColumn()
}

func (s *Store) ensureVideosColumn() error {
	rows, err := s.db.Query(`PRAGMA table_info(products)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	hasVideos := false
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == "videos" {
			hasVideos = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !hasVideos {
		if _, err := s.db.Exec(`ALTER TABLE products ADD COLUMN videos TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("adding videos column: %w", err)
		}
	}
	return nil
}
