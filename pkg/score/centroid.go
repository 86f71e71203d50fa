package score

import (
	"log/slog"

	"github.com/mchmarny/semscore/pkg/domain"
	"gonum.org/v1/gonum/floats"
)

// Centroid is the mean association row of a domain's members found in the matrix.
type Centroid struct {
	Domain  string    `json:"domain" yaml:"domain"`
	Vector  []float64 `json:"-" yaml:"-"`
	Found   int       `json:"found" yaml:"found"`
	Missing []string  `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// NewCentroid averages the rows of d's members that exist in rows. The sum is
// divided by the number of rows found, not the nominal domain size.
func NewCentroid(rows Rows, d domain.Domain) (*Centroid, error) {
	c := &Centroid{Domain: d.Name}
	var sum []float64
	for _, w := range d.Words {
		row, err := rows.Row(w)
		if err != nil {
			slog.Warn("skipping word missing from matrix", "domain", d.Name, "word", w)
			c.Missing = append(c.Missing, w)
			continue
		}
		if sum == nil {
			sum = make([]float64, len(row))
		}
		floats.Add(sum, row)
		c.Found++
	}

	if c.Found == 0 {
		return nil, &DomainEmptyError{Domain: d.Name, Members: 0, Required: 1}
	}

	floats.Scale(1/float64(c.Found), sum)
	c.Vector = sum
	return c, nil
}

// Centroids holds one centroid per domain in set order; the entry is nil for
// a domain without any member in the matrix.
type Centroids []*Centroid

// Get returns the centroid of the named domain.
func (cs Centroids) Get(name string) *Centroid {
	for _, c := range cs {
		if c != nil && c.Domain == name {
			return c
		}
	}
	return nil
}

// ComputeCentroids builds the centroids of every domain in s sequentially.
func ComputeCentroids(rows Rows, s domain.Set) (Centroids, []WordError) {
	out := make(Centroids, len(s))
	var failures []WordError
	for i, d := range s {
		c, err := NewCentroid(rows, d)
		if err != nil {
			failures = append(failures, WordError{Stage: StageCentroid, Domain: d.Name, Err: err})
			continue
		}
		out[i] = c
	}
	return out, failures
}
