package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/gap"
)

var (
	insertGapResult = `INSERT INTO gap_result
		(run_id, row_index, domain1, domain2, fitting, alien, difference, prediction, prediction_correct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectGapResults = `SELECT row_index, domain1, domain2, fitting, alien, difference, prediction, prediction_correct
		FROM gap_result
		WHERE run_id = ?
		ORDER BY row_index`
)

// GapRow is a stored GAP group result.
type GapRow struct {
	Row               int              `json:"row" yaml:"row"`
	Group             domain.TestGroup `json:"group" yaml:"group"`
	Difference        float64          `json:"difference" yaml:"difference"`
	Prediction        string           `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	PredictionCorrect bool             `json:"prediction_correct" yaml:"predictionCorrect"`
}

// SaveGapReport stores run with the scored groups and failed rows of rep.
func SaveGapReport(db *sql.DB, run *Run, rep *gap.Report) error {
	if db == nil {
		return errDBNotInitialized
	}
	if rep == nil {
		return errors.New("report required")
	}

	return inTx(db, func(tx *sql.Tx) error {
		if err := saveRun(tx, db, run); err != nil {
			return err
		}

		stmt, err := tx.Prepare(rebind(db, insertGapResult))
		if err != nil {
			return fmt.Errorf("failed to prepare gap result insert statement: %w", err)
		}
		defer stmt.Close()

		for _, res := range rep.Results {
			fitting, err := json.Marshal(res.Group.Fitting)
			if err != nil {
				return fmt.Errorf("failed to marshal fitting words: %w", err)
			}
			alien, err := json.Marshal(res.Group.Alien)
			if err != nil {
				return fmt.Errorf("failed to marshal alien words: %w", err)
			}
			if _, err := stmt.Exec(run.ID, res.Row, res.Group.Domain1, res.Group.Domain2,
				string(fitting), string(alien), res.Difference, res.Prediction,
				boolToInt(res.PredictionCorrect)); err != nil {
				return fmt.Errorf("failed to insert gap result for row %d: %w", res.Row, err)
			}
		}

		failures := make([]Failure, 0, len(rep.Failures))
		for _, f := range rep.Failures {
			failures = append(failures, Failure{
				Item:    strconv.Itoa(f.Row),
				Stage:   KindGap,
				Domain:  f.Group.Domain1 + " / " + f.Group.Domain2,
				Message: f.Err.Error(),
			})
		}
		if err := saveFailures(tx, db, run.ID, failures); err != nil {
			return err
		}

		slog.Debug("gap report saved", "run", run.ID, "rows", len(rep.Results), "failures", len(failures))
		return nil
	})
}

// GetGapResults returns the stored group results of a GAP run in row order.
func GetGapResults(db *sql.DB, runID string) ([]GapRow, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	rows, err := db.Query(rebind(db, selectGapResults), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gap results: %w", err)
	}
	defer rows.Close()

	list := make([]GapRow, 0)
	for rows.Next() {
		var (
			r              GapRow
			fitting, alien string
			correct        int
		)
		if err := rows.Scan(&r.Row, &r.Group.Domain1, &r.Group.Domain2, &fitting, &alien,
			&r.Difference, &r.Prediction, &correct); err != nil {
			return nil, fmt.Errorf("failed to scan gap result: %w", err)
		}
		if err := json.Unmarshal([]byte(fitting), &r.Group.Fitting); err != nil {
			return nil, fmt.Errorf("failed to parse fitting words: %w", err)
		}
		if err := json.Unmarshal([]byte(alien), &r.Group.Alien); err != nil {
			return nil, fmt.Errorf("failed to parse alien words: %w", err)
		}
		r.PredictionCorrect = correct == 1
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gap results: %w", err)
	}
	return list, nil
}
