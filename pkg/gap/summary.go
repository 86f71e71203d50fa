package gap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Summary aggregates one written report.
type Summary struct {
	Name          string  `json:"name" yaml:"name"`
	Rows          int     `json:"rows" yaml:"rows"`
	GapCorrect    int     `json:"gap_correct" yaml:"gapCorrect"`
	OracleCorrect int     `json:"oracle_correct" yaml:"oracleCorrect"`
	Average       float64 `json:"average" yaml:"average"`
}

// Summarize reads a report written by WriteReport. The prediction column is
// located by its header name.
func Summarize(name string, r io.Reader) (Summary, error) {
	s := Summary{Name: name}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read report header: %w", err)
	}
	correctCol := -1
	for i, h := range header {
		if h == colPredictionCorrect {
			correctCol = i
			break
		}
	}
	if correctCol < 0 {
		return s, fmt.Errorf("report %s has no %s column", name, colPredictionCorrect)
	}

	var total float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("read report row: %w", err)
		}
		if len(rec) <= correctCol {
			return s, fmt.Errorf("line %d: want at least %d fields, got %d", line, correctCol+1, len(rec))
		}
		diff, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return s, fmt.Errorf("line %d: invalid difference %q: %w", line, rec[0], err)
		}
		s.Rows++
		total += diff
		if diff > 0 {
			s.GapCorrect++
		}
		if strings.TrimSpace(rec[correctCol]) == "1" {
			s.OracleCorrect++
		}
	}
	if s.Rows > 0 {
		s.Average = total / float64(s.Rows)
	}
	return s, nil
}

// SummarizeDir summarizes every *.tsv report in dir, sorted by file name.
func SummarizeDir(dir string) ([]Summary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return nil, fmt.Errorf("list reports in %s: %w", dir, err)
	}
	sort.Strings(paths)

	list := make([]Summary, 0, len(paths))
	for _, p := range paths {
		s, err := summarizeFile(p)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func summarizeFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	s, err := Summarize(filepath.Base(path), f)
	if err != nil {
		return s, fmt.Errorf("summarize %s: %w", path, err)
	}
	return s, nil
}

// WriteSummaries writes one tab separated row per report.
func WriteSummaries(w io.Writer, list []Summary) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"File", "GapScoreCorrect", "OracleCorrect", "GapScoreAverage", "Rows"}); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, s := range list {
		err := cw.Write([]string{
			s.Name,
			strconv.Itoa(s.GapCorrect),
			strconv.Itoa(s.OracleCorrect),
			strconv.FormatFloat(s.Average, 'g', -1, 64),
			strconv.Itoa(s.Rows),
		})
		if err != nil {
			return fmt.Errorf("write summary %s: %w", s.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
