// Package runindex maintains a SQLite-backed index of pipeline runs across
// every project under one baseDir, so `noctua runs list` can report on past
// runs without the caller needing to already know a project's slug (the
// one piece of information state.json-per-workdir can't answer: "what runs
// exist at all"). Grounded on the teacher's pkg/persistence/db.go (the
// singleton sql.DB opened against modernc.org/sqlite's pure-Go driver, WAL
// mode, busy timeout) and sessions.go (one small table, upsert-by-primary-
// key writes, ORDER BY timestamp reads) — collapsed from its multi-table
// session/agent-context/coder-state schema to the single `runs` table this
// domain needs.
package runindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"noctua/pkg/pipeline"
)

// Index is a handle on baseDir/.noctua/runs.db. Unlike the teacher's
// process-wide singleton (persistence.GetDB), Index is an explicit value a
// caller opens and closes, since noctua's CLI is a one-shot process per
// invocation rather than a long-lived server.
type Index struct {
	db *sql.DB
}

// dbPath is the index's fixed location under baseDir, sibling to the
// per-project pipeline workdirs.
func dbPath(baseDir string) string {
	return filepath.Join(baseDir, ".noctua", "runs.db")
}

// Open creates baseDir/.noctua if needed, opens (or creates) runs.db with
// WAL journaling and a busy timeout so a concurrent `noctua run` and
// `noctua runs list` don't collide, and ensures the schema exists.
func Open(baseDir string) (*Index, error) {
	dir := filepath.Dir(dbPath(baseDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath(baseDir),
	))
	if err != nil {
		return nil, fmt.Errorf("open runs.db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite supports one writer; avoid pool contention with it

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping runs.db: %w", err)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Index{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id         TEXT PRIMARY KEY,
			project_name   TEXT NOT NULL,
			target_url     TEXT NOT NULL,
			current_stage  TEXT NOT NULL,
			model_handle   TEXT NOT NULL,
			error          TEXT NOT NULL DEFAULT '',
			started_at     TEXT NOT NULL,
			completed_at   TEXT NOT NULL DEFAULT '',
			updated_at     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`)
	return err
}

// Close releases the underlying connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Upsert records state's current snapshot, replacing any prior row for the
// same RunID. Called by the CLI after every RunPipeline invocation (and
// may be called mid-run too, since RunID is stable for the life of a run).
func (idx *Index) Upsert(state pipeline.PipelineState) error {
	completedAt := ""
	if state.CompletedAt != nil {
		completedAt = state.CompletedAt.Format(time.RFC3339)
	}
	_, err := idx.db.Exec(`
		INSERT INTO runs (run_id, project_name, target_url, current_stage, model_handle, error, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			current_stage = excluded.current_stage,
			error         = excluded.error,
			completed_at  = excluded.completed_at,
			updated_at    = excluded.updated_at
	`,
		state.RunID, state.ProjectName, state.TargetURL, string(state.CurrentStage), state.ModelHandle,
		state.Error, state.StartedAt.Format(time.RFC3339), completedAt, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", state.RunID, err)
	}
	return nil
}

// RunSummary is one indexed run, as reported by List.
type RunSummary struct {
	RunID        string
	ProjectName  string
	TargetURL    string
	CurrentStage string
	ModelHandle  string
	Error        string
	StartedAt    time.Time
}

// List returns every indexed run across all projects, most recently
// started first.
func (idx *Index) List() ([]RunSummary, error) {
	rows, err := idx.db.Query(`
		SELECT run_id, project_name, target_url, current_stage, model_handle, error, started_at
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var startedAt string
		if err := rows.Scan(&r.RunID, &r.ProjectName, &r.TargetURL, &r.CurrentStage, &r.ModelHandle, &r.Error, &startedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
