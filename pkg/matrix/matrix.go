// Package matrix provides the word-by-word association matrix the scorers
// read from. Rows are the unit of lookup and are never mutated after load.
package matrix

import (
	"errors"
	"fmt"

	"github.com/mchmarny/semscore/pkg/vocab"
)

// Matrix is a square, word-indexed table of association scores.
// It is not assumed to be symmetric.
type Matrix struct {
	words []string
	index map[string]int
	rows  [][]float64
}

// New builds a matrix from a word index and one row per word.
func New(words []string, rows [][]float64) (*Matrix, error) {
	if len(words) == 0 {
		return nil, errors.New("matrix requires at least one word")
	}
	if len(rows) != len(words) {
		return nil, fmt.Errorf("matrix has %d words but %d rows", len(words), len(rows))
	}

	m := &Matrix{
		words: make([]string, len(words)),
		index: make(map[string]int, len(words)),
		rows:  make([][]float64, len(rows)),
	}

	for i, w := range words {
		c := vocab.Canonical(w)
		if c == "" {
			return nil, fmt.Errorf("empty word at index %d", i)
		}
		if _, ok := m.index[c]; ok {
			return nil, fmt.Errorf("duplicate word in matrix index: %s", c)
		}
		if len(rows[i]) != len(words) {
			return nil, fmt.Errorf("row %s has %d columns, want %d", c, len(rows[i]), len(words))
		}
		m.words[i] = c
		m.index[c] = i
		m.rows[i] = append([]float64(nil), rows[i]...)
	}

	return m, nil
}

// Len returns the number of words in the index.
func (m *Matrix) Len() int {
	return len(m.words)
}

// Words returns a copy of the canonical word index in row order.
func (m *Matrix) Words() []string {
	return append([]string(nil), m.words...)
}

// Has reports whether the word has a row.
func (m *Matrix) Has(word string) bool {
	_, ok := m.index[vocab.Canonical(word)]
	return ok
}

// Row returns the association row for word. The returned slice is shared
// and must not be modified.
func (m *Matrix) Row(word string) ([]float64, error) {
	i, ok := m.index[vocab.Canonical(word)]
	if !ok {
		return nil, vocab.Missing(word)
	}
	return m.rows[i], nil
}

// Value returns the cell at row a, column b.
func (m *Matrix) Value(a, b string) (float64, error) {
	row, err := m.Row(a)
	if err != nil {
		return 0, err
	}
	j, ok := m.index[vocab.Canonical(b)]
	if !ok {
		return 0, vocab.Missing(b)
	}
	return row[j], nil
}

// Word returns the canonical word at column j.
func (m *Matrix) Word(j int) string {
	return m.words[j]
}
