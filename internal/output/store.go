package output

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/street-width-mcp/internal/estimate"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	variant     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	locations   INTEGER NOT NULL DEFAULT 0,
	failures    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS results (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	link_id    TEXT NOT NULL,
	point_id   TEXT NOT NULL,
	side       TEXT NOT NULL,
	pano_id    TEXT NOT NULL,
	width      REAL,
	error_code INTEGER,
	no_buffer  INTEGER NOT NULL DEFAULT 0,
	reason     TEXT,
	t_top      REAL,
	t_bottom   REAL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Store persists batch results in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the database at path and applies the schema.
// Use ":memory:" in tests.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// StartRun records a new run and returns its id.
func (s *Store) StartRun(ctx context.Context, v estimate.Variant) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, variant, started_at) VALUES (?, ?, ?)`,
		id, v.String(), time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// Record inserts the rows of one location in a single transaction.
func (s *Store) Record(ctx context.Context, runID string, rows []Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (
			run_id, link_id, point_id, side, pano_id,
			width, error_code, no_buffer, reason, t_top, t_bottom
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var width, code, tTop, tBottom interface{}
		if r.Result.Value != nil {
			width = Round2(*r.Result.Value)
		}
		if r.Result.Code != nil {
			code = int(*r.Result.Code)
		}
		if sol := r.Result.Solution; sol != nil {
			tTop, tBottom = sol.TTop, sol.TBottom
		}
		_, err := stmt.ExecContext(ctx,
			runID, r.LinkID, r.PointID, r.Side, r.PanoID,
			width, code, r.Result.IsNoBuffer(), r.Result.Reason, tTop, tBottom)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s/%s: %w", r.LinkID, r.Side, err)
		}
	}
	return tx.Commit()
}

// FinishRun stamps the run with its end time and counts.
func (s *Store) FinishRun(ctx context.Context, runID string, locations, failures int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, locations = ?, failures = ? WHERE run_id = ?`,
		time.Now().UnixNano(), locations, failures, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// StoredResult is one row of the results table.
type StoredResult struct {
	LinkID    string   `json:"link_id"`
	PointID   string   `json:"point_id"`
	Side      string   `json:"side"`
	PanoID    string   `json:"pano_id"`
	Width     *float64 `json:"width"`
	ErrorCode *int     `json:"error_code"`
	NoBuffer  bool     `json:"no_buffer"`
	Reason    string   `json:"reason,omitempty"`
}

// Results returns the results of a run ordered by link, side and point.
func (s *Store) Results(ctx context.Context, runID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT link_id, point_id, side, pano_id, width, error_code, no_buffer, reason
		FROM results
		WHERE run_id = ?
		ORDER BY link_id, side, point_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var r StoredResult
		var width sql.NullFloat64
		var code sql.NullInt64
		var reason sql.NullString
		if err := rows.Scan(&r.LinkID, &r.PointID, &r.Side, &r.PanoID, &width, &code, &r.NoBuffer, &reason); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if width.Valid {
			r.Width = &width.Float64
		}
		if code.Valid {
			c := int(code.Int64)
			r.ErrorCode = &c
		}
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}
