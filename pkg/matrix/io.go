package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/semscore/pkg/vocab"
)

// LoadFile reads a matrix from a TSV file.
func LoadFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix %s: %w", path, err)
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load matrix %s: %w", path, err)
	}
	return m, nil
}

// Load reads a TSV matrix. The header row is an empty corner cell followed by
// the column words; every following row is a word and its values. Column and
// row order must agree.
func Load(r io.Reader) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty matrix input")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, errors.New("matrix header has no columns")
	}
	cols := header[1:]

	words := make([]string, 0, len(cols))
	rows := make([][]float64, 0, len(cols))
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(words) == len(cols) {
			return nil, fmt.Errorf("line %d exceeds the %d header columns", line, len(cols))
		}
		if len(rec) != len(cols)+1 {
			return nil, fmt.Errorf("line %d has %d values, want %d", line, len(rec)-1, len(cols))
		}
		if vocab.Canonical(rec[0]) != vocab.Canonical(cols[len(words)]) {
			return nil, fmt.Errorf("line %d word %q does not match column %q", line, rec[0], cols[len(words)])
		}
		row := make([]float64, len(cols))
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, j+1, err)
			}
			row[j] = v
		}
		words = append(words, rec[0])
		rows = append(rows, row)
	}

	return New(words, rows)
}

// Write serializes m in the format read by Load.
func Write(w io.Writer, m *Matrix) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'

	header := append([]string{""}, m.words...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, word := range m.words {
		rec := make([]string, 0, len(m.words)+1)
		rec = append(rec, word)
		for _, v := range m.rows[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", word, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
