package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	"github.com/alvmarrod/graph-weaver/internal/graph"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// importBatchSize is the number of edges written per transaction during import
const importBatchSize = 50_000

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS edges (
		src INTEGER NOT NULL,
		dst INTEGER NOT NULL,
		weight INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (src, dst)
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		vertices INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		termination TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id INTEGER NOT NULL,
		table_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		row_key INTEGER NOT NULL,
		row_value REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		PRIMARY KEY (run_id, table_name, position)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertEdge inserts a new edge or increments its weight if it exists
func (s *Storage) UpsertEdge(ctx context.Context, e graph.Edge) error {
	_, err := s.db.ExecContext(ctx, upsertEdgeSQL, int64(e.Src), int64(e.Dst))
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

const upsertEdgeSQL = `
	INSERT INTO edges (src, dst, weight)
	VALUES (?, ?, 1)
	ON CONFLICT(src, dst) DO UPDATE SET
		weight = weight + 1
`

// ImportEdges stores every edge of the sequence, batching writes into
// transactions. Returns the number of edges written.
func (s *Storage) ImportEdges(ctx context.Context, edges iter.Seq[graph.Edge]) (int, error) {
	startTime := time.Now()
	written := 0

	tx, stmt, err := s.beginImport(ctx)
	if err != nil {
		return 0, err
	}
	pending := 0

	for e := range edges {
		if _, err := stmt.ExecContext(ctx, int64(e.Src), int64(e.Dst)); err != nil {
			stmt.Close()
			tx.Rollback()
			return written, fmt.Errorf("failed to import edge %s: %w", e, err)
		}
		pending++

		if pending == importBatchSize {
			stmt.Close()
			if err := tx.Commit(); err != nil {
				return written, fmt.Errorf("failed to commit edge batch: %w", err)
			}
			written += pending
			pending = 0
			logrus.Debugf("Imported %d edges so far", written)

			tx, stmt, err = s.beginImport(ctx)
			if err != nil {
				return written, err
			}
		}
	}

	stmt.Close()
	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("failed to commit edge batch: %w", err)
	}
	written += pending

	logrus.Infof("Import complete: %d edges written in %v", written, time.Since(startTime))
	return written, nil
}

func (s *Storage) beginImport(ctx context.Context) (*sql.Tx, *sql.Stmt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertEdgeSQL)
	if err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to prepare edge upsert: %w", err)
	}
	return tx, stmt, nil
}

// EachEdge streams stored edges ordered by (src, dst), calling fn once per
// occurrence so that weight-many duplicates are reproduced.
func (s *Storage) EachEdge(ctx context.Context, fn func(graph.Edge) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT src, dst, weight FROM edges ORDER BY src, dst`)
	if err != nil {
		return fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row EdgeRow
		if err := rows.Scan(&row.Src, &row.Dst, &row.Weight); err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}
		e := graph.Edge{Src: graph.VertexID(row.Src), Dst: graph.VertexID(row.Dst)}
		for i := 0; i < row.Weight; i++ {
			if err := fn(e); err != nil {
				return err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating edges: %w", err)
	}
	return nil
}

// GetEdge returns a stored pair with its weight, or nil if absent
func (s *Storage) GetEdge(ctx context.Context, src, dst graph.VertexID) (*EdgeRow, error) {
	var row EdgeRow
	err := s.db.QueryRowContext(ctx, `
		SELECT src, dst, weight FROM edges WHERE src = ? AND dst = ?
	`, int64(src), int64(dst)).Scan(&row.Src, &row.Dst, &row.Weight)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	return &row, nil
}

// EdgeCounts returns the number of distinct pairs and of edge occurrences
func (s *Storage) EdgeCounts(ctx context.Context) (pairs, total int, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(weight), 0) FROM edges`).Scan(&pairs, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return pairs, total, nil
}

// ResetEdges removes every stored edge
func (s *Storage) ResetEdges(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return fmt.Errorf("failed to reset edges: %w", err)
	}
	return nil
}

// SaveRun persists a run and its result rows atomically, returning the run ID
func (s *Storage) SaveRun(ctx context.Context, run Run, results []ResultRow) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (source, started_at, finished_at, vertices, edges, termination)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Source, run.StartedAt, run.FinishedAt, run.Vertices, run.Edges, run.Termination)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve run_id: %w", err)
	}

	for _, r := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, table_name, position, row_key, row_value)
			VALUES (?, ?, ?, ?, ?)
		`, runID, r.Table, r.Rank, r.Key, r.Value)
		if err != nil {
			return 0, fmt.Errorf("failed to insert result row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// LatestRun returns the most recently saved run, or nil if none exists
func (s *Storage) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, source, started_at, finished_at, vertices, edges, termination
		FROM runs
		ORDER BY run_id DESC
		LIMIT 1
	`).Scan(&run.RunID, &run.Source, &run.StartedAt, &run.FinishedAt, &run.Vertices, &run.Edges, &run.Termination)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &run, nil
}

// LoadResults returns the rows of one table of a run, in rank order
func (s *Storage) LoadResults(ctx context.Context, runID int64, table string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, position, row_key, row_value
		FROM results
		WHERE run_id = ? AND table_name = ?
		ORDER BY position ASC
	`, runID, table)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	var results []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.Table, &r.Rank, &r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
