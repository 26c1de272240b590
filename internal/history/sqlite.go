package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bumpcast/internal/cascade"
	"bumpcast/internal/reactor"
)

// Store is the SQLite-backed audit log of past runs. It is an append-only
// record for `bumpcast history`, not a cache: every run still rebuilds its
// graph from disk.
type Store struct {
	db *sql.DB
}

// Run is one recorded apply with its version changes.
type Run struct {
	ID        int64
	Root      string
	StartedAt time.Time
	Changes   []Change
}

// Change is one recorded artifact update.
type Change struct {
	Artifact reactor.ArtifactID
	Before   string
	After    string
	Origin   string
}

// Open creates or opens the history database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS changes (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			grp TEXT NOT NULL,
			name TEXT NOT NULL,
			before_version TEXT NOT NULL,
			after_version TEXT NOT NULL,
			origin TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_changes_run ON changes(run_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun records one applied run and its changes in a transaction.
func (s *Store) SaveRun(ctx context.Context, root string, startedAt time.Time, res *cascade.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	out, err := tx.ExecContext(ctx, `INSERT INTO runs (root, started_at) VALUES (?, ?)`, root, startedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO changes (run_id, grp, name, before_version, after_version, origin)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for id, change := range res.Changes {
		if _, err := stmt.ExecContext(ctx, runID, id.Group, id.Name, change.Before, change.After, change.Origin.String()); err != nil {
			return 0, fmt.Errorf("history: insert change %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first, with their changes.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, root, started_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Root, &r.StartedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		changes, err := s.changesFor(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Changes = changes
	}
	return runs, nil
}

func (s *Store) changesFor(ctx context.Context, runID int64) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grp, name, before_version, after_version, origin
		FROM changes WHERE run_id = ? ORDER BY grp, name`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Artifact.Group, &c.Artifact.Name, &c.Before, &c.After, &c.Origin); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
