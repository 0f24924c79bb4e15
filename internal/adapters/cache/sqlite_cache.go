package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache looks numbers up in the whitelist table of a SQLite database
type SQLiteCache struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteCache opens the SQLite database read-only
func NewSQLiteCache(dbPath string, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		logger.Warn("SQLite database not readable at startup", zap.String("path", dbPath), zap.Error(err))
	}

	return &SQLiteCache{
		db:     db,
		logger: logger,
	}, nil
}

// Contains reports whether the number has a row in the whitelist table
func (c *SQLiteCache) Contains(ctx context.Context, number string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, `
		SELECT 1 FROM whitelist
		WHERE number = ?
		LIMIT 1
	`, number).Scan(&one)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to query whitelist: %w", err)
	}

	return true, nil
}

// Stop closes the database connection
func (c *SQLiteCache) Stop() {
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
