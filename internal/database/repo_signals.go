package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"
	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

const signalColumns = "signal_id, symbol, pattern_type, signal_type, entry, target, stop, confidence, " +
	"status, current_price, profit_loss, created_at, updated_at, closed_at, close_reason, metadata"

// SignalRepository persists trading signal lifecycle rows.
type SignalRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewSignalRepository constructs a SignalRepository.
func NewSignalRepository(db *DB, log zerolog.Logger) *SignalRepository {
	return &SignalRepository{db: db, log: log.With().Str("repo", "trading_signals").Logger()}
}

// Create inserts a new signal row. Activation state is carried in the
// metadata column since the reference schema has no dedicated column for
// it (§4.C4 documents no `activated` column on trading_signals).
func (r *SignalRepository) Create(ctx context.Context, s model.Signal) error {
	err := withRetry(func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO trading_signals ("+signalColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			s.SignalID, s.Symbol, s.PatternType, string(s.SignalType),
			s.Entry, s.Target, s.Stop, s.Confidence,
			string(s.Status), s.CurrentPrice, nullableFloat(s.ProfitLossPct),
			s.CreatedAt.UTC().Format(time.RFC3339), s.UpdatedAt.UTC().Format(time.RFC3339),
			nullableTime(s.ClosedAt), nullString(s.CloseReason), activationMetadata(s.Activated),
		)
		return err
	})
	if err != nil {
		if isDuplicateSignalError(err) {
			return apperrors.ErrDuplicateSignal
		}
		return err
	}
	return nil
}

// Update persists a lifecycle transition for an existing signal.
func (r *SignalRepository) Update(ctx context.Context, s model.Signal) error {
	return withRetry(func() error {
		_, err := r.db.ExecContext(ctx,
			`UPDATE trading_signals SET status=?, current_price=?, profit_loss=?, updated_at=?, closed_at=?, close_reason=?, metadata=? WHERE signal_id=?`,
			string(s.Status), s.CurrentPrice, nullableFloat(s.ProfitLossPct),
			s.UpdatedAt.UTC().Format(time.RFC3339), nullableTime(s.ClosedAt), nullString(s.CloseReason),
			activationMetadata(s.Activated), s.SignalID,
		)
		return err
	})
}

// GetActive returns every signal with status=ACTIVE, used for startup
// recovery (§4.C8 "Recovery").
func (r *SignalRepository) GetActive(ctx context.Context) ([]model.Signal, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+signalColumns+" FROM trading_signals WHERE status = ?", string(model.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("query active signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// List returns recent signals, optionally filtered by status, newest first.
func (r *SignalRepository) List(ctx context.Context, limit int, statusFilter string) ([]model.Signal, error) {
	query := "SELECT " + signalColumns + " FROM trading_signals"
	var args []interface{}
	if statusFilter != "" {
		query += " WHERE status = ?"
		args = append(args, statusFilter)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CleanupOlderThan deletes non-ACTIVE rows older than the retention window
// (§4.C8 "Cleanup").
func (r *SignalRepository) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, "DELETE FROM trading_signals WHERE status != ? AND created_at < ?", string(model.StatusActive), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup trading_signals: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanSignal(rows *sql.Rows) (model.Signal, error) {
	var s model.Signal
	var signalType, status string
	var createdAt, updatedAt string
	var profitLoss sql.NullFloat64
	var closedAt, closeReason, metadata sql.NullString

	if err := rows.Scan(
		&s.SignalID, &s.Symbol, &s.PatternType, &signalType,
		&s.Entry, &s.Target, &s.Stop, &s.Confidence,
		&status, &s.CurrentPrice, &profitLoss,
		&createdAt, &updatedAt, &closedAt, &closeReason, &metadata,
	); err != nil {
		return s, fmt.Errorf("scan signal: %w", err)
	}

	s.SignalType = model.SignalType(signalType)
	s.Status = model.SignalStatus(status)
	if profitLoss.Valid {
		v := profitLoss.Float64
		s.ProfitLossPct = &v
	}
	s.CloseReason = closeReason.String
	s.Activated = activationFromMetadata(metadata.String)

	created, err := parseTimestamp(createdAt)
	if err != nil {
		return s, err
	}
	s.CreatedAt = created

	updated, err := parseTimestamp(updatedAt)
	if err != nil {
		return s, err
	}
	s.UpdatedAt = updated

	if closedAt.Valid && closedAt.String != "" {
		ct, err := parseTimestamp(closedAt.String)
		if err != nil {
			return s, err
		}
		s.ClosedAt = &ct
	}

	return s, nil
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// activationMetadata and activationFromMetadata encode/decode the
// `activated` flag into the metadata column, deliberately simple rather
// than a full JSON document since it is the only field this store needs
// there today.
func activationMetadata(activated bool) string {
	if activated {
		return `{"activated":true}`
	}
	return `{"activated":false}`
}

func activationFromMetadata(metadata string) bool {
	return metadata == `{"activated":true}`
}
