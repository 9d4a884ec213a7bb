package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paterrx/planilhador-telegram/internal/common"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SeenEntry is one stored fingerprint.
type SeenEntry struct {
	FirstSeen   time.Time
	Fingerprint string
}

// SQLiteStore keeps seen fingerprints in a SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database at dbPath and applies migrations.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection also keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns every stored fingerprint.
func (s *SQLiteStore) Load(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint FROM seen_bets ORDER BY first_seen, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Add stores id. Adding a known id is a no-op.
func (s *SQLiteStore) Add(ctx context.Context, id string) error {
	_, err := s.AddNew(ctx, id)
	return err
}

// AddNew stores id and reports whether it was not stored yet.
func (s *SQLiteStore) AddNew(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateFingerprint(id); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO seen_bets (fingerprint) VALUES (?)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to store fingerprint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to store fingerprint: %w", err)
	}
	return n > 0, nil
}

// Has reports whether id is stored.
func (s *SQLiteStore) Has(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seen_bets WHERE fingerprint = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	return true, nil
}

// Remove deletes id so the bet can be recorded again.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM seen_bets WHERE fingerprint = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fingerprint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fingerprint %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored fingerprints.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_bets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	return n, nil
}

// Recent returns the newest entries first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]SeenEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, first_seen FROM seen_bets ORDER BY first_seen DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SeenEntry
	for rows.Next() {
		var e SeenEntry
		if err := rows.Scan(&e.Fingerprint, &e.FirstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
