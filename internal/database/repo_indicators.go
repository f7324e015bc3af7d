package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

const indicatorColumns = "timestamp, symbol, indicator_name, value, timeframe, metadata"

// IndicatorRepository persists technical indicator samples.
type IndicatorRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewIndicatorRepository constructs an IndicatorRepository.
func NewIndicatorRepository(db *DB, log zerolog.Logger) *IndicatorRepository {
	return &IndicatorRepository{db: db, log: log.With().Str("repo", "technical_indicators").Logger()}
}

// BatchInsert stores every sample atomically.
func (r *IndicatorRepository) BatchInsert(ctx context.Context, samples []model.IndicatorSample) error {
	if len(samples) == 0 {
		return nil
	}
	return withRetry(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin indicator batch insert: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO technical_indicators ("+indicatorColumns+") VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prepare indicator batch insert: %w", err)
		}
		defer stmt.Close()

		for _, sample := range samples {
			if _, err := stmt.ExecContext(ctx, sample.Timestamp.UTC().Format(time.RFC3339), sample.Symbol, sample.IndicatorName, sample.Value, nullString(sample.Timeframe), nullString(sample.Metadata)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert indicator sample: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit indicator batch insert: %w", err)
		}
		return nil
	})
}

// Latest returns the most recent sample for symbol/name, or nil if none exists.
func (r *IndicatorRepository) Latest(ctx context.Context, symbol, name string) (*model.IndicatorSample, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+indicatorColumns+" FROM technical_indicators WHERE symbol = ? AND indicator_name = ? ORDER BY timestamp DESC LIMIT 1",
		symbol, name)

	sample, err := scanIndicatorRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

func scanIndicatorRow(row *sql.Row) (model.IndicatorSample, error) {
	var sample model.IndicatorSample
	var ts string
	var timeframe, metadata sql.NullString

	if err := row.Scan(&ts, &sample.Symbol, &sample.IndicatorName, &sample.Value, &timeframe, &metadata); err != nil {
		return sample, err
	}
	parsed, err := parseTimestamp(ts)
	if err != nil {
		return sample, err
	}
	sample.Timestamp = parsed
	sample.Timeframe = timeframe.String
	sample.Metadata = metadata.String
	return sample, nil
}
