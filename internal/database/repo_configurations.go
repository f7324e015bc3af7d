package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ConfigurationRepository persists recognized-key configuration overrides
// (§6 "Configuration (recognized keys, effects)").
type ConfigurationRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewConfigurationRepository constructs a ConfigurationRepository.
func NewConfigurationRepository(db *DB, log zerolog.Logger) *ConfigurationRepository {
	return &ConfigurationRepository{db: db, log: log.With().Str("repo", "configurations").Logger()}
}

// Set upserts a configuration key.
func (r *ConfigurationRepository) Set(ctx context.Context, key, value, typ, description string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return withRetry(func() error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO configurations (key, value, type, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value, type=excluded.type, description=excluded.description, updated_at=excluded.updated_at
		`, key, value, typ, description, now, now)
		return err
	})
}

// Get returns a configuration value, or ("", false) if the key is unset.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM configurations WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get configuration %s: %w", key, err)
	}
	return value, true, nil
}

// All returns every recognized configuration key/value pair, used to seed
// overrides onto a loaded config.Config at startup.
func (r *ConfigurationRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM configurations")
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan configuration: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
