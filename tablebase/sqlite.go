package tablebase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const (
	createPositions = `CREATE TABLE positions (
	canonical INTEGER PRIMARY KEY,
	outcome INTEGER NOT NULL
)`
	insertPosition = `INSERT INTO positions (canonical, outcome) VALUES (?, ?)`
	selectPosition = `SELECT outcome FROM positions WHERE canonical = ?`
	countPositions = `SELECT COUNT(*) FROM positions`
)

const DefaultExportBatchSize = 100000

// ExportSQLite writes entries to a fresh SQLite database at path, replacing
// any existing file. Rows are inserted inside a single transaction and
// progress is logged every batchSize rows.
func ExportSQLite(ctx context.Context, path string, entries []Entry, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultExportBatchSize
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createPositions); err != nil {
		return fmt.Errorf("creating positions table: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertPosition)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	start := time.Now()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, int64(e.Key), int(e.Outcome)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting %#x: %w", e.Key, err)
		}
		if (i+1)%batchSize == 0 {
			elapsed := time.Since(start).Seconds()
			log.Info().Int("inserted", i+1).Int("total", len(entries)).
				Float64("pct", 100*float64(i+1)/float64(len(entries))).
				Float64("rows-per-sec", float64(i+1)/elapsed).
				Msg("sqlite-export-progress")
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Int("rows", len(entries)).Dur("elapsed", time.Since(start)).
		Str("path", path).Msg("sqlite-export-done")
	return nil
}

// SQLiteStore answers outcome lookups from an exported database.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Lookup returns the outcome stored for a canonical key.
func (s *SQLiteStore) Lookup(ctx context.Context, key uint64) (Outcome, bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, selectPosition, int64(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return Unknown, false, nil
	}
	if err != nil {
		return Unknown, false, err
	}
	o := Outcome(v)
	if !o.Valid() {
		return Unknown, false, fmt.Errorf("bad outcome %d stored for %#x", v, key)
	}
	return o, true, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, countPositions).Scan(&n)
	return n, err
}

// Verify spot-checks up to n entries spread evenly across entries and
// returns the number that are missing or differ.
func (s *SQLiteStore) Verify(ctx context.Context, entries []Entry, n int) (int, error) {
	if len(entries) == 0 || n <= 0 {
		return 0, nil
	}
	step := len(entries) / n
	if step == 0 {
		step = 1
	}
	bad := 0
	for i := 0; i < len(entries) && n > 0; i, n = i+step, n-1 {
		e := entries[i]
		o, ok, err := s.Lookup(ctx, e.Key)
		if err != nil {
			return bad, err
		}
		if !ok || o != e.Outcome {
			log.Error().Uint64("key", e.Key).Str("want", e.Outcome.String()).
				Str("got", o.String()).Msg("sqlite-verify-mismatch")
			bad++
		}
	}
	return bad, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
