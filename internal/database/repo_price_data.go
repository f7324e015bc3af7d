package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/cryptosignal/internal/model"
	"github.com/rs/zerolog"
)

// priceDataColumns lists the price_data columns explicitly, never SELECT *,
// matching the reference stack's trade_repository.go convention.
const priceDataColumns = "timestamp, symbol, price, open, high, low, close, volume, source"

// PriceDataRepository persists and retrieves ticks.
type PriceDataRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewPriceDataRepository constructs a PriceDataRepository.
func NewPriceDataRepository(db *DB, log zerolog.Logger) *PriceDataRepository {
	return &PriceDataRepository{db: db, log: log.With().Str("repo", "price_data").Logger()}
}

// Insert stores a single tick.
func (r *PriceDataRepository) Insert(ctx context.Context, t model.Tick) error {
	return withRetry(func() error {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO price_data ("+priceDataColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			t.Timestamp.UTC().Format(time.RFC3339), t.Symbol, t.Price, t.Open, t.High, t.Low, t.Close, t.Volume, t.Source,
		)
		return err
	})
}

// BatchInsert stores all ticks atomically within one transaction (§4.C4:
// "Batch insert for ticks must be atomic within a batch").
func (r *PriceDataRepository) BatchInsert(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	return withRetry(func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch insert: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO price_data ("+priceDataColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prepare batch insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range ticks {
			if _, err := stmt.ExecContext(ctx, t.Timestamp.UTC().Format(time.RFC3339), t.Symbol, t.Price, t.Open, t.High, t.Low, t.Close, t.Volume, t.Source); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("batch insert tick: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit batch insert: %w", err)
		}
		return nil
	})
}

// GetBySymbol returns the most recent ticks for symbol, newest first,
// bounded by limit (0 means unbounded).
func (r *PriceDataRepository) GetBySymbol(ctx context.Context, symbol string, limit int) ([]model.Tick, error) {
	query := "SELECT " + priceDataColumns + " FROM price_data WHERE symbol = ? ORDER BY timestamp DESC"
	args := []interface{}{symbol}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price_data: %w", err)
	}
	defer rows.Close()

	var out []model.Tick
	for rows.Next() {
		t, err := scanTick(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTick(rows *sql.Rows) (model.Tick, error) {
	var t model.Tick
	var ts string
	var open, high, low, close, volume sql.NullFloat64
	var source sql.NullString

	if err := rows.Scan(&ts, &t.Symbol, &t.Price, &open, &high, &low, &close, &volume, &source); err != nil {
		return t, fmt.Errorf("scan tick: %w", err)
	}

	parsed, err := parseTimestamp(ts)
	if err != nil {
		return t, err
	}
	t.Timestamp = parsed
	t.Open, t.High, t.Low, t.Close, t.Volume = open.Float64, high.Float64, low.Float64, close.Float64, volume.Float64
	t.Source = source.String
	return t, nil
}

// parseTimestamp tolerates the handful of timestamp layouts the store may
// contain, the same defensive multi-format parse the reference stack's
// trade_repository.go scan helpers perform.
func parseTimestamp(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	var lastErr error
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, lastErr)
}
