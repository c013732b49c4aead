// Package history persists completed generation runs to SQLite so the
// CLI and server can list past prompts, seeds, and outputs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/logger"
)

// Run is one recorded generation run
type Run struct {
	ID             string    `json:"id"`
	Prompt         string    `json:"prompt"`
	ResolvedPrompt string    `json:"resolved_prompt"`
	Seeds          []int64   `json:"seeds"`
	OutputCount    int       `json:"output_count"`
	Warnings       []string  `json:"warnings,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the SQLite-backed run history
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (creating if needed) the history database at path with
// WAL mode and a busy timeout, then applies the schema.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = logger.Logger
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}

	// WAL allows concurrent reads while a run is being recorded
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	log.Debugw("History database opened",
		"path", path)
	return s, nil
}

// NewWithDB wraps an existing connection (used by tests)
func NewWithDB(db *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.Logger
	}
	return &Store{db: db, log: log}
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			prompt           TEXT NOT NULL,
			resolved_prompt  TEXT NOT NULL,
			seeds            TEXT NOT NULL,
			output_count     INTEGER NOT NULL,
			warnings         TEXT NOT NULL DEFAULT '[]',
			created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`)
	if err != nil {
		return errors.Wrap(err, "failed to apply history schema")
	}
	return nil
}

// Record inserts a completed run
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "run id must not be empty")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	seeds, err := json.Marshal(run.Seeds)
	if err != nil {
		return errors.Wrap(err, "failed to encode seeds")
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return errors.Wrap(err, "failed to encode warnings")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, prompt, resolved_prompt, seeds, output_count, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Prompt, run.ResolvedPrompt, string(seeds), run.OutputCount, string(warnings), run.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record run %s", run.ID)
	}

	s.log.Debugw("Run recorded",
		logger.FieldRunID, run.ID,
		logger.FieldOutputCount, run.OutputCount)
	return nil
}

// Get returns one run by id
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, resolved_prompt, seeds, output_count, warnings, created_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", id)
	}
	return run, nil
}

// List returns the most recent runs, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, resolved_prompt, seeds, output_count, warnings, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var seeds, warnings string

	if err := sc.Scan(&run.ID, &run.Prompt, &run.ResolvedPrompt, &seeds, &run.OutputCount, &warnings, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seeds), &run.Seeds); err != nil {
		return nil, errors.Wrap(err, "failed to decode seeds")
	}
	if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
		return nil, errors.Wrap(err, "failed to decode warnings")
	}
	return &run, nil
}
