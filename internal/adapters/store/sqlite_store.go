package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the KeyValueStore interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens or creates the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS store_entries (
			entry_key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (entry_key, value)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Get returns the values stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]string, error) {
	return queryValues(ctx, s.db, `SELECT value FROM store_entries WHERE entry_key = ?`, key)
}

// Set replaces the values stored under key
func (s *SQLiteStore) Set(ctx context.Context, key string, values []string) error {
	err := replaceValues(ctx, s.db,
		`DELETE FROM store_entries WHERE entry_key = ?`,
		`INSERT OR IGNORE INTO store_entries (entry_key, value) VALUES (?, ?)`,
		key, values)
	if err != nil {
		return err
	}
	s.logger.Debug("Updated store entry", zap.String("key", key), zap.Int("count", len(values)))
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	return nil
}
