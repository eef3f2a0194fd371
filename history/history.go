// Package history archives benchmark results in a SQLite database. Every
// exported cell is stored in long format so runs with different settings
// grids or algorithm sets can be compared with plain SQL.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/weiihann/navbench/table"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    output_path TEXT
);

CREATE TABLE IF NOT EXISTS cells (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    block INTEGER NOT NULL,  -- settings row index within the run
    label TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    row_key TEXT NOT NULL,
    column_name TEXT NOT NULL,
    kind TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (run_id, block, row_key, column_name)
);
CREATE INDEX IF NOT EXISTS idx_cells_column ON cells(column_name);
`

// Run is one archived benchmark run.
type Run struct {
	ID         string
	StartedAt  time.Time
	OutputPath string
	Cells      int
}

// Cell is one archived table cell.
type Cell struct {
	Block  int
	Label  string
	RowKey string
	Column string
	Kind   string
	Value  string
}

// Store is a SQLite-backed result archive.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun registers a run. Cells recorded under runID reference it.
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time, outputPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, output_path) VALUES (?, ?, ?)`,
		runID, startedAt.UTC().Format(time.RFC3339Nano), outputPath,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	return nil
}

// Record stores every cell of t under (runID, block) in one transaction
// and returns the number of cells written.
func Record[R any](
	ctx context.Context,
	s *Store,
	runID string,
	block int,
	label string,
	t *table.Table[R],
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO cells
		    (run_id, block, label, row_index, row_key, column_name, kind, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	fields := t.Schema().Fields()

	var n, rowIndex int
	for key, row := range t.Rows() {
		for _, f := range fields {
			v := f.Get(&row)
			if _, err := stmt.ExecContext(ctx,
				runID, block, label, rowIndex, key, f.Name, f.Kind.String(), v.String(),
			); err != nil {
				return 0, fmt.Errorf("insert %s/%s: %w", key, f.Name, err)
			}
			n++
		}
		rowIndex++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return n, nil
}

// Runs lists archived runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, COALESCE(r.output_path, ''), COUNT(c.run_id)
		FROM runs r LEFT JOIN cells c ON c.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &started, &r.OutputPath, &r.Cells); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Column returns the archived cells of one column for a run in block and
// row order.
func (s *Store) Column(ctx context.Context, runID, column string) ([]Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT block, label, row_key, column_name, kind, value
		FROM cells
		WHERE run_id = ? AND column_name = ?
		ORDER BY block, row_index`, runID, column)
	if err != nil {
		return nil, fmt.Errorf("query column %s: %w", column, err)
	}
	defer rows.Close()

	var cells []Cell
	for rows.Next() {
		var c Cell
		if err := rows.Scan(&c.Block, &c.Label, &c.RowKey, &c.Column, &c.Kind, &c.Value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		cells = append(cells, c)
	}

	return cells, rows.Err()
}
