package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	KindAttribution = "attribution"
	KindGap         = "gap"

	runListLimitDefault = 100

	// fixed width so created_at sorts as text
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	insertRun = `INSERT INTO run (id, kind, source, created_at, params) VALUES (?, ?, ?, ?, ?)`

	selectRuns = `SELECT id, kind, source, created_at, params
		FROM run
		WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, id
		LIMIT ?`

	selectRun = `SELECT id, kind, source, created_at, params FROM run WHERE id = ?`

	deleteRun = `DELETE FROM run WHERE id = ?`

	ErrRunNotFound = errors.New("run not found")
)

// Run is one stored scoring or evaluation run.
type Run struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      string         `json:"kind" yaml:"kind"`
	Source    string         `json:"source" yaml:"source"`
	CreatedAt time.Time      `json:"created_at" yaml:"createdAt"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// NewRun returns a run with a fresh ID stamped with the current time.
func NewRun(kind, source string, params map[string]any) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Params:    params,
	}
}

func saveRun(tx *sql.Tx, db *sql.DB, r *Run) error {
	if r == nil || r.ID == "" || r.Kind == "" {
		return errors.New("run with ID and kind required")
	}
	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}
	if _, err := tx.Exec(rebind(db, insertRun),
		r.ID, r.Kind, r.Source, r.CreatedAt.UTC().Format(timeLayout), string(params)); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r       Run
		created string
		params  string
	)
	if err := s.Scan(&r.ID, &r.Kind, &r.Source, &created, &params); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run time %q: %w", created, err)
	}
	r.CreatedAt = t
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return nil, fmt.Errorf("failed to parse run params: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, optionally of one kind.
func ListRuns(db *sql.DB, kind string, limit int) ([]*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = runListLimitDefault
	}

	rows, err := db.Query(rebind(db, selectRuns), kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return list, nil
}

// GetRun returns the run with id.
func GetRun(db *sql.DB, id string) (*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	r, err := scanRun(db.QueryRow(rebind(db, selectRun), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return r, nil
}

// DeleteRun removes a run and everything stored with it.
func DeleteRun(db *sql.DB, id string) error {
	if db == nil {
		return errDBNotInitialized
	}
	res, err := db.Exec(rebind(db, deleteRun), id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}
