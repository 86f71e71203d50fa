package data

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/semscore/pkg/score"
)

var (
	insertWordScore = `INSERT INTO word_score (run_id, word, domain, cdd, sdd, score, word_rank, best)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertFailure = `INSERT INTO run_failure (run_id, item, stage, domain, message)
		VALUES (?, ?, ?, ?, ?)`

	selectWordScores = `SELECT domain, word, cdd, sdd, score, word_rank, best
		FROM word_score
		WHERE run_id = ?
		ORDER BY domain, word`

	selectFailures = `SELECT item, stage, domain, message
		FROM run_failure
		WHERE run_id = ?
		ORDER BY stage, domain, item`
)

// Failure is a stored per-word or per-row failure.
type Failure struct {
	Item    string `json:"item,omitempty" yaml:"item,omitempty"`
	Stage   string `json:"stage" yaml:"stage"`
	Domain  string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// SaveAttribution stores run with the scored words and failures of a.
func SaveAttribution(db *sql.DB, run *Run, a *score.Attribution) error {
	if db == nil {
		return errDBNotInitialized
	}
	if a == nil {
		return errors.New("attribution required")
	}

	return inTx(db, func(tx *sql.Tx) error {
		if err := saveRun(tx, db, run); err != nil {
			return err
		}

		stmt, err := tx.Prepare(rebind(db, insertWordScore))
		if err != nil {
			return fmt.Errorf("failed to prepare word score insert statement: %w", err)
		}
		defer stmt.Close()

		records := a.Records()
		for _, r := range records {
			if _, err := stmt.Exec(run.ID, r.Word, r.Domain, r.CDD, r.SDD, r.Score, r.Rank, boolToInt(r.Best)); err != nil {
				return fmt.Errorf("failed to insert score for %s: %w", r.Word, err)
			}
		}

		failures := make([]Failure, 0, len(a.Failures))
		for _, f := range a.Failures {
			failures = append(failures, Failure{Item: f.Word, Stage: string(f.Stage), Domain: f.Domain, Message: f.Message()})
		}
		if err := saveFailures(tx, db, run.ID, failures); err != nil {
			return err
		}

		slog.Debug("attribution saved", "run", run.ID, "words", len(records), "failures", len(failures))
		return nil
	})
}

// GetRunScores returns the word scores of an attribution run, ordered by domain and word.
func GetRunScores(db *sql.DB, runID string) ([]score.WordRecord, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	rows, err := db.Query(rebind(db, selectWordScores), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query word scores: %w", err)
	}
	defer rows.Close()

	list := make([]score.WordRecord, 0)
	for rows.Next() {
		var (
			r    score.WordRecord
			best int
		)
		if err := rows.Scan(&r.Domain, &r.Word, &r.CDD, &r.SDD, &r.Score, &r.Rank, &best); err != nil {
			return nil, fmt.Errorf("failed to scan word score: %w", err)
		}
		r.Best = best == 1
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate word scores: %w", err)
	}
	return list, nil
}

// GetRunFailures returns the failures recorded for a run.
func GetRunFailures(db *sql.DB, runID string) ([]Failure, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	rows, err := db.Query(rebind(db, selectFailures), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	list := make([]Failure, 0)
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Item, &f.Stage, &f.Domain, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		list = append(list, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failures: %w", err)
	}
	return list, nil
}

func saveFailures(tx *sql.Tx, db *sql.DB, runID string, list []Failure) error {
	if len(list) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(rebind(db, insertFailure))
	if err != nil {
		return fmt.Errorf("failed to prepare failure insert statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range list {
		if _, err := stmt.Exec(runID, f.Item, f.Stage, f.Domain, f.Message); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}
	return nil
}

func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("failed to rollback transaction", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
