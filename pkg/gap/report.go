package gap

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

const (
	colMeanDifference    = "MeanGapScoreDifference"
	colIntraDomainWord   = "IntraDomainWord"
	colExtraDomainWord   = "ExtraDomainWord"
	colOraclePrediction  = "OracleOutlierPrediction"
	colPredictionCorrect = "OraclePredictionCorrect"
	colOccurrences       = "Occurrences W"
	colNearestNeighbor   = "NearestNeighbor W"

	noPrediction = "None"
)

// WriteReport writes one tab separated row per scored group. Column counts
// come from the first result; groups of any other shape are rejected before
// anything is written.
func WriteReport(w io.Writer, rep *Report) error {
	if err := checkShape(rep.Results); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if len(rep.Results) > 0 {
		if err := cw.Write(reportHeader(rep.Results[0])); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}
	for _, res := range rep.Results {
		if err := cw.Write(reportRow(res)); err != nil {
			return fmt.Errorf("write report row %d: %w", res.Row, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

func checkShape(results []GroupResult) error {
	if len(results) == 0 {
		return nil
	}
	good, alien := len(results[0].Group.Fitting), len(results[0].Group.Alien)
	for _, res := range results[1:] {
		if len(res.Group.Fitting) != good || len(res.Group.Alien) != alien {
			return fmt.Errorf("row %d has %d fitting and %d alien words, report columns expect %d and %d",
				res.Row, len(res.Group.Fitting), len(res.Group.Alien), good, alien)
		}
	}
	return nil
}

func reportHeader(first GroupResult) []string {
	good, alien := len(first.Group.Fitting), len(first.Group.Alien)
	h := []string{colMeanDifference}
	for range good {
		h = append(h, colIntraDomainWord)
	}
	for range alien {
		h = append(h, colExtraDomainWord)
	}
	h = append(h, colOraclePrediction, colPredictionCorrect)
	for i := range good + alien {
		h = append(h, colOccurrences+strconv.Itoa(i))
	}
	for i := range good + alien {
		h = append(h, colNearestNeighbor+strconv.Itoa(i))
	}
	return h
}

func reportRow(res GroupResult) []string {
	row := []string{strconv.FormatFloat(res.Difference, 'g', -1, 64)}
	row = append(row, res.Group.Words()...)

	pred, correct := noPrediction, "0"
	if res.Prediction != "" {
		pred = res.Prediction
	}
	if res.PredictionCorrect {
		correct = "1"
	}
	row = append(row, pred, correct)

	for _, n := range res.Occurrences {
		row = append(row, strconv.Itoa(n))
	}
	for _, n := range res.Neighbors {
		row = append(row, n.String())
	}
	return row
}
