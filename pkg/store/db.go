// Package store persists saved BASIC programs and user accounts in SQLite.
package store

import (
	"database/sql"
	"fmt"

	"github.com/antibyte/retrobasic/pkg/configuration"
	"github.com/antibyte/retrobasic/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// Store is the SQLite backed program library and user table.
type Store struct {
	db       *sql.DB
	hashCost int
}

// InitDB opens the SQLite database and checks that it is reachable.
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateTables ensures all required tables exist.
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_login INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (owner, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_programs_owner ON programs (owner)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	if err := CreateTables(db); err != nil {
		db.Close()
		return nil, err
	}

	cost := configuration.GetInt("Authentication", "password_hash_cost", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		logger.Warn(logger.AreaDatabase, "password_hash_cost %d out of range, using %d", cost, bcrypt.DefaultCost)
		cost = bcrypt.DefaultCost
	}

	logger.Info(logger.AreaDatabase, "database ready at %s", path)
	return &Store{db: db, hashCost: cost}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
