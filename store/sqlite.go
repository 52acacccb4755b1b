package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	final_agent TEXT NOT NULL,
	status TEXT NOT NULL,
	turns INTEGER NOT NULL,
	messages TEXT NOT NULL,
	context_variables TEXT,
	handoffs TEXT,
	errors TEXT,
	error TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// SQLiteStore persists runs in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run Run) error {
	messages, err := json.Marshal(run.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	vars, err := json.Marshal(run.ContextVariables)
	if err != nil {
		return fmt.Errorf("failed to encode context variables: %w", err)
	}
	handoffs, err := json.Marshal(run.Handoffs)
	if err != nil {
		return fmt.Errorf("failed to encode handoffs: %w", err)
	}
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, agent, final_agent, status, turns, messages, context_variables, handoffs, errors, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Agent, run.FinalAgent, run.Status, run.Turns,
		string(messages), string(vars), string(handoffs), string(errs), run.Error,
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, agent, final_agent, status, turns, messages, context_variables, handoffs, errors, error, created_at FROM runs`

func (s *SQLiteStore) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Run, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Agent != "" {
		where = append(where, "(agent = ? OR final_agent = ?)")
		args = append(args, filter.Agent, filter.Agent)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                          Run
		messages                     string
		vars, handoffs, errs, runErr sql.NullString
		createdAt                    int64
	)
	err := sc.Scan(&run.ID, &run.Agent, &run.FinalAgent, &run.Status, &run.Turns,
		&messages, &vars, &handoffs, &errs, &runErr, &createdAt)
	if err != nil {
		return Run{}, err
	}

	if err := json.Unmarshal([]byte(messages), &run.Messages); err != nil {
		return Run{}, fmt.Errorf("failed to decode messages of run %s: %w", run.ID, err)
	}
	if err := decodeOptional(vars, &run.ContextVariables); err != nil {
		return Run{}, err
	}
	if err := decodeOptional(handoffs, &run.Handoffs); err != nil {
		return Run{}, err
	}
	if err := decodeOptional(errs, &run.Errors); err != nil {
		return Run{}, err
	}
	run.Error = runErr.String
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return run, nil
}

func decodeOptional(s sql.NullString, v interface{}) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}
