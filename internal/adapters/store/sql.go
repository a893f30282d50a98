package store

import (
	"context"
	"database/sql"
	"fmt"
)

func queryValues(ctx context.Context, db *sql.DB, query, key string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan store row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store rows: %w", err)
	}
	return values, nil
}

func replaceValues(ctx context.Context, db *sql.DB, deleteQuery, insertQuery, key string, values []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteQuery, key); err != nil {
		return fmt.Errorf("failed to clear store entry: %w", err)
	}
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, insertQuery, key, v); err != nil {
			return fmt.Errorf("failed to insert store entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit store entry: %w", err)
	}
	return nil
}
