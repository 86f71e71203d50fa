package oracle

import (
	"errors"

	"github.com/mchmarny/semscore/pkg/matrix"
	"github.com/mchmarny/semscore/pkg/vocab"
)

// Table is an oracle over a precomputed word-by-word similarity table.
type Table struct {
	m *matrix.Matrix
}

// NewTable wraps a similarity matrix.
func NewTable(m *matrix.Matrix) *Table {
	return &Table{m: m}
}

// LoadTable reads a similarity table in the matrix TSV format.
func LoadTable(path string) (*Table, error) {
	m, err := matrix.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewTable(m), nil
}

// Similarity returns the table cell at row a, column b.
func (t *Table) Similarity(a, b string) (float64, error) {
	return t.m.Value(a, b)
}

// MostSimilar returns the n columns of word's row with the highest values,
// excluding word itself.
func (t *Table) MostSimilar(word string, n int) ([]Neighbor, error) {
	if n < 1 {
		return nil, errors.New("neighbor count must be positive")
	}
	row, err := t.m.Row(word)
	if err != nil {
		return nil, err
	}
	self := vocab.Canonical(word)
	hits := make([]Neighbor, 0, len(row))
	for j, v := range row {
		w := t.m.Word(j)
		if w == self {
			continue
		}
		hits = append(hits, Neighbor{Word: w, Score: v})
	}
	return topN(hits, n), nil
}
