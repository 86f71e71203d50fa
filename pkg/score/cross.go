package score

import (
	"log/slog"
	"math"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/vocab"
)

// WordScore is the success variant of a per-word result.
type WordScore struct {
	Domain string
	Word   string
	Value  float64
	Rank   int
}

// CrossResult holds Cross-Domain Accuracy scores keyed by canonical word.
type CrossResult struct {
	Scores   map[string]float64
	Ranks    map[string]int
	Best     map[string]bool
	Failures []WordError
}

// CrossDomain computes the raw Cross-Domain Accuracy of every word in s.
func CrossDomain(rows Rows, s domain.Set, cents Centroids) CrossResult {
	res := CrossResult{
		Scores: make(map[string]float64),
		Ranks:  make(map[string]int),
		Best:   make(map[string]bool),
	}
	for i, d := range s {
		scores, failures := crossDomainScores(rows, d, cents[i], cents)
		res.Failures = append(res.Failures, failures...)
		for _, ws := range scores {
			res.Scores[ws.Word] = ws.Value
			res.Ranks[ws.Word] = ws.Rank
			res.Best[ws.Word] = ws.Rank == 0
		}
	}
	return res
}

// crossDomainScores ranks each member of d by how its similarity to the
// leave-one-out corrected centroid of d compares with its similarity to
// every other domain centroid. The raw score is e^rank.
func crossDomainScores(rows Rows, d domain.Domain, own *Centroid, all Centroids) ([]WordScore, []WordError) {
	if own == nil {
		return nil, []WordError{{Stage: StageCross, Domain: d.Name, Err: &DomainEmptyError{Domain: d.Name, Required: 2}}}
	}
	n := float64(own.Found)
	if own.Found < 2 {
		return nil, []WordError{{Stage: StageCross, Domain: d.Name, Err: &DomainEmptyError{Domain: d.Name, Members: own.Found, Required: 2}}}
	}

	scores := make([]WordScore, 0, len(d.Words))
	var failures []WordError
	corrected := make([]float64, len(own.Vector))
	for _, w := range d.Words {
		key := vocab.Canonical(w)
		row, err := rows.Row(w)
		if err != nil {
			slog.Warn("skipping cross-domain score", "domain", d.Name, "word", w, "error", err)
			failures = append(failures, WordError{Stage: StageCross, Domain: d.Name, Word: key, Err: err})
			continue
		}

		for j := range corrected {
			corrected[j] = (own.Vector[j]*n - row[j]) / (n - 1)
		}
		ownSim := Cosine(corrected, row)

		rank := 0
		for _, other := range all {
			if other == nil || other.Domain == d.Name {
				continue
			}
			if Cosine(other.Vector, row) >= ownSim {
				rank++
			}
		}

		v := math.Exp(float64(rank))
		if math.IsInf(v, 0) || math.IsNaN(v) {
			err := &NumericOverflowError{Word: key, Op: "e^rank"}
			slog.Warn("skipping cross-domain score", "domain", d.Name, "word", w, "error", err)
			failures = append(failures, WordError{Stage: StageCross, Domain: d.Name, Word: key, Err: err})
			continue
		}
		scores = append(scores, WordScore{Domain: d.Name, Word: key, Value: v, Rank: rank})
	}
	return scores, failures
}
