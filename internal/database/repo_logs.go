package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRepository writes a queryable secondary sink of log events (§7
// "structured logging" — system_logs augments, does not replace, the
// primary zerolog stream).
type LogRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewLogRepository constructs a LogRepository.
func NewLogRepository(db *DB, log zerolog.Logger) *LogRepository {
	return &LogRepository{db: db, log: log.With().Str("repo", "system_logs").Logger()}
}

// Write records one log event. Failures here are themselves logged via
// zerolog but never propagated — the audit sink must never break the
// component it is observing.
func (r *LogRepository) Write(ctx context.Context, level, component, message, details string) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO system_logs (timestamp, level, component, message, details) VALUES (?, ?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339), level, component, message, nullString(details),
	)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to write system log row")
	}
}
