// Package database provides the embedded persistence store: connection
// management, schema migration, health checks and online backup for the
// system's single SQLite-family file.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aristath/cryptosignal/internal/apperrors"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Profile selects a PRAGMA/pool configuration tuned for this store's access
// pattern. The trading_system.db file is written continuously (ticks,
// indicator samples) and read continuously (signal manager, reporting), so
// ProfileStandard is the default; ProfileCache is available for a
// short-lived scratch database in tests.
type Profile string

const (
	// ProfileStandard balances durability and throughput for the primary store.
	ProfileStandard Profile = "standard"
	// ProfileCache favors speed over durability for ephemeral/test databases.
	ProfileCache Profile = "cache"
)

// DB wraps a *sql.DB with the connection and PRAGMA configuration the store
// requires, plus health/backup/maintenance helpers.
type DB struct {
	conn    *sql.DB
	path    string
	profile Profile
}

// Config configures a new DB.
type Config struct {
	Path    string
	Profile Profile
}

// New opens (creating if necessary) the database at cfg.Path with WAL mode
// and profile-appropriate PRAGMAs, and configures its connection pool.
func New(cfg Config) (*DB, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	connStr := buildConnectionString(absPath, cfg.Profile)

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %v", apperrors.ErrFatalInit, err)
	}
	configureConnectionPool(conn, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w: %v", apperrors.ErrFatalInit, err)
	}

	return &DB{conn: conn, path: absPath, profile: cfg.Profile}, nil
}

func buildConnectionString(path string, profile Profile) string {
	connStr := path + "?_pragma=journal_mode(WAL)"

	switch profile {
	case ProfileCache:
		connStr += "&_pragma=synchronous(OFF)"
		connStr += "&_pragma=temp_store(MEMORY)"
		connStr += "&_pragma=auto_vacuum(FULL)"
	default: // ProfileStandard
		connStr += "&_pragma=synchronous(NORMAL)"
		connStr += "&_pragma=temp_store(MEMORY)"
		connStr += "&_pragma=auto_vacuum(INCREMENTAL)"
	}

	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=wal_autocheckpoint(1000)"
	connStr += "&_pragma=cache_size(10000)" // ~10k pages, per spec §4.C4

	return connStr
}

func configureConnectionPool(conn *sql.DB, profile Profile) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(1 * time.Hour)
	conn.SetConnMaxIdleTime(10 * time.Minute)

	if profile == ProfileCache {
		conn.SetMaxOpenConns(5)
		conn.SetMaxIdleConns(1)
	}
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB for repositories to build queries on.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies schema.sql within a transaction, tolerating
// already-applied schema (idempotent across restarts).
func (db *DB) Migrate() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}

	if _, err := tx.Exec(schemaSQL); err != nil {
		_ = tx.Rollback()

		errStr := err.Error()
		if strings.Contains(errStr, "duplicate column") || strings.Contains(errStr, "already exists") {
			return nil
		}
		return fmt.Errorf("apply schema: %w: %v", apperrors.ErrFatalInit, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w: %v", apperrors.ErrFatalInit, err)
	}
	return nil
}

// Begin starts a new transaction.
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// BeginTx starts a new transaction with options.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, opts)
}

// Exec executes a query without returning rows.
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// ExecContext executes a query with context.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryContext executes a query with context.
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// QueryRowContext executes a query with context.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// HealthCheck runs the PRAGMA integrity_check probe required by §4.C4.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// QuickCheck performs a ping-only liveness check.
func (db *DB) QuickCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WALCheckpoint forces a WAL checkpoint; mode is one of
// PASSIVE/FULL/RESTART/TRUNCATE.
func (db *DB) WALCheckpoint(mode string) error {
	if mode == "" {
		mode = "TRUNCATE"
	}
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	return nil
}

// Backup produces a consistent copy of the store at destPath using
// SQLite's online-backup primitive (VACUUM INTO), then opens the copy and
// re-verifies its integrity before returning.
func (db *DB) Backup(destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(destPath, "'", "''"))
	if _, err := db.conn.Exec(query); err != nil {
		return fmt.Errorf("vacuum into backup: %w", err)
	}

	verifyConn, err := sql.Open("sqlite", destPath)
	if err != nil {
		return fmt.Errorf("open backup for verification: %w", err)
	}
	defer verifyConn.Close()

	var result string
	if err := verifyConn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup integrity check failed: %s", result)
	}
	return nil
}

// Stats reports on-disk size and page-level statistics.
type Stats struct {
	SizeBytes     int64
	WALSizeBytes  int64
	PageCount     int64
	PageSize      int64
	FreelistCount int64
}

// GetStats retrieves database statistics.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if fi, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = fi.Size()
	}
	if fi, err := os.Stat(db.path + "-wal"); err == nil {
		stats.WALSizeBytes = fi.Size()
	}
	if err := db.conn.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("get page count: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("get page size: %w", err)
	}
	if err := db.conn.QueryRow("PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("get freelist count: %w", err)
	}
	return stats, nil
}

// CleanupOlderThan deletes rows older than the given retention window from
// price_data, technical_indicators and system_logs, then reclaims space.
func (db *DB) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)

	var total int64
	for _, table := range []string{"price_data", "technical_indicators", "system_logs"} {
		res, err := db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", table), cutoff)
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if _, err := db.conn.ExecContext(ctx, "PRAGMA incremental_vacuum"); err != nil {
		return total, fmt.Errorf("incremental vacuum: %w", err)
	}
	return total, nil
}
