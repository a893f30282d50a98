package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the KeyValueStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects to dsn and creates the table if needed
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS store_entries (
			entry_key VARCHAR(191) NOT NULL,
			value VARCHAR(320) NOT NULL,
			PRIMARY KEY (entry_key, value)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Get returns the values stored under key
func (s *MySQLStore) Get(ctx context.Context, key string) ([]string, error) {
	return queryValues(ctx, s.db, `SELECT value FROM store_entries WHERE entry_key = ?`, key)
}

// Set replaces the values stored under key
func (s *MySQLStore) Set(ctx context.Context, key string, values []string) error {
	err := replaceValues(ctx, s.db,
		`DELETE FROM store_entries WHERE entry_key = ?`,
		`INSERT IGNORE INTO store_entries (entry_key, value) VALUES (?, ?)`,
		key, values)
	if err != nil {
		return err
	}
	s.logger.Debug("Updated store entry", zap.String("key", key), zap.Int("count", len(values)))
	return nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL database: %w", err)
	}
	return nil
}
