package score

import (
	"gonum.org/v1/gonum/floats"
)

// Rows is the read-only row lookup the scorers need from an association matrix.
type Rows interface {
	Row(word string) ([]float64, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// magnitude. Both vectors must have the same length.
func Cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
