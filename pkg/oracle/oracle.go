// Package oracle defines the similarity capability the GAP evaluator scores,
// with a precomputed-table backend and a word-embedding backend.
package oracle

import (
	"fmt"
	"sort"
	"strings"
)

// Neighbor is a candidate word and its similarity to a query word.
type Neighbor struct {
	Word  string  `json:"word" yaml:"word"`
	Score float64 `json:"score" yaml:"score"`
}

func (n Neighbor) String() string {
	return fmt.Sprintf("%s ; %g", n.Word, n.Score)
}

// Oracle answers pairwise similarity and nearest-neighbor queries. Calls are
// synchronous and must be safe for concurrent use.
type Oracle interface {
	Similarity(a, b string) (float64, error)
	MostSimilar(word string, n int) ([]Neighbor, error)
}

// OutlierDetector is implemented by oracles that can pick the word that does
// not belong in a list.
type OutlierDetector interface {
	DoesNotMatch(words []string) (string, error)
}

const (
	KindTable     = "table"
	KindEmbedding = "embedding"
)

// Kinds lists the supported backends.
var Kinds = []string{KindTable, KindEmbedding}

// Open loads the backend of the given kind from path.
func Open(kind, path string) (Oracle, error) {
	switch strings.ToLower(kind) {
	case KindTable, "":
		return LoadTable(path)
	case KindEmbedding:
		return LoadEmbedding(path)
	default:
		return nil, fmt.Errorf("unknown oracle kind %q (supported: %s)", kind, strings.Join(Kinds, ", "))
	}
}

// topN returns the n highest scoring neighbors, ties broken by word.
func topN(hits []Neighbor, n int) []Neighbor {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Word < hits[j].Word
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits
}
