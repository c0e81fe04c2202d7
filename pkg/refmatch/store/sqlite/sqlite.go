package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/refmatch/pkg/refmatch/internalerr"
	"github.com/cognicore/refmatch/pkg/refmatch/store"
)

// Timestamps are stored with a fixed width so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	ref_field TEXT NOT NULL,
	cand_field TEXT NOT NULL,
	threshold REAL NOT NULL,
	header TEXT NOT NULL,
	matched INTEGER NOT NULL DEFAULT 0,
	unmatched INTEGER NOT NULL DEFAULT 0,
	cleared INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	vals TEXT NOT NULL,
	PRIMARY KEY(run_id, idx),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts or replaces a run and its rows
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}

	headerJSON, err := json.Marshal(r.Header)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, created_at, ref_field, cand_field, threshold, header, matched, unmatched, cleared)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	created_at=excluded.created_at,
	ref_field=excluded.ref_field,
	cand_field=excluded.cand_field,
	threshold=excluded.threshold,
	header=excluded.header,
	matched=excluded.matched,
	unmatched=excluded.unmatched,
	cleared=excluded.cleared;
`,
		r.ID,
		r.CreatedAt.UTC().Format(timeLayout),
		r.RefField,
		r.CandField,
		r.Threshold,
		string(headerJSON),
		r.Matched,
		r.Unmatched,
		r.Cleared,
	)
	if err != nil {
		return err
	}

	if err := replaceRunRows(ctx, tx, r.ID, r.Rows); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceRunRows(ctx context.Context, tx *sql.Tx, runID string, rows [][]string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_rows WHERE run_id = ?`, runID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_rows (run_id, idx, vals) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		vals, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, i, string(vals)); err != nil {
			return err
		}
	}
	return nil
}

// GetRun loads a run with its rows in insertion order
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		r          store.Run
		createdAt  string
		headerJSON string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, ref_field, cand_field, threshold, header, matched, unmatched, cleared
FROM runs
WHERE id = ?;
`, id).Scan(&r.ID, &createdAt, &r.RefField, &r.CandField, &r.Threshold, &headerJSON, &r.Matched, &r.Unmatched, &r.Cleared)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}

	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return store.Run{}, err
	}
	if err := json.Unmarshal([]byte(headerJSON), &r.Header); err != nil {
		return store.Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT vals FROM run_rows WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return store.Run{}, err
	}
	defer rows.Close()

	r.Rows = [][]string{}
	for rows.Next() {
		var valsJSON string
		if err := rows.Scan(&valsJSON); err != nil {
			return store.Run{}, err
		}
		var vals []string
		if err := json.Unmarshal([]byte(valsJSON), &vals); err != nil {
			return store.Run{}, err
		}
		r.Rows = append(r.Rows, vals)
	}
	return r, rows.Err()
}

// ListRuns returns run summaries, newest first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.created_at, r.ref_field, r.cand_field, r.threshold,
	(SELECT COUNT(*) FROM run_rows rr WHERE rr.run_id = r.id),
	r.matched, r.unmatched, r.cleared
FROM runs r
ORDER BY r.created_at DESC, r.id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RunSummary
	for rows.Next() {
		var sum store.RunSummary
		var createdAt string
		if err := rows.Scan(&sum.ID, &createdAt, &sum.RefField, &sum.CandField, &sum.Threshold,
			&sum.RowCount, &sum.Matched, &sum.Unmatched, &sum.Cleared); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
