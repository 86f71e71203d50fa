package score

import (
	"log/slog"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/vocab"
)

// DeltaDefault is the ideal similarity between two members of a domain.
const DeltaDefault = 1.0

// SameResult holds Same-Domain Accuracy scores keyed by canonical word.
type SameResult struct {
	Scores   map[string]float64
	Failures []WordError
}

// SameDomain computes the Same-Domain Accuracy of every word in s.
func SameDomain(rows Rows, s domain.Set, delta float64) SameResult {
	res := SameResult{Scores: make(map[string]float64)}
	for _, d := range s {
		scores, failures := sameDomainScores(rows, d, delta)
		res.Failures = append(res.Failures, failures...)
		for _, ws := range scores {
			res.Scores[ws.Word] = ws.Value
		}
	}
	return res
}

// sameDomainScores computes 1 - Σ(delta - cos(w2, w))² / m for each member w,
// m being the number of other members actually compared.
func sameDomainScores(rows Rows, d domain.Domain, delta float64) ([]WordScore, []WordError) {
	if len(d.Words) < 2 {
		return nil, []WordError{{Stage: StageSame, Domain: d.Name, Err: &DomainEmptyError{Domain: d.Name, Members: len(d.Words), Required: 2}}}
	}

	scores := make([]WordScore, 0, len(d.Words))
	var failures []WordError
	for _, w := range d.Words {
		key := vocab.Canonical(w)
		row, err := rows.Row(w)
		if err != nil {
			slog.Warn("skipping same-domain score", "domain", d.Name, "word", w, "error", err)
			failures = append(failures, WordError{Stage: StageSame, Domain: d.Name, Word: key, Err: err})
			continue
		}

		var sum float64
		var skipped error
		m := 0
		for _, w2 := range d.Words {
			if vocab.Canonical(w2) == key {
				continue
			}
			row2, err := rows.Row(w2)
			if err != nil {
				slog.Debug("skipping same-domain pair", "domain", d.Name, "word", w, "other", w2)
				if skipped == nil {
					skipped = err
				}
				continue
			}
			dev := delta - Cosine(row2, row)
			sum += dev * dev
			m++
		}

		if m == 0 {
			// every partner was missing; duplicates of w alone leave the domain short
			err := skipped
			if err == nil {
				err = &DomainEmptyError{Domain: d.Name, Members: 1, Required: 2}
			}
			slog.Warn("no comparable members for same-domain score", "domain", d.Name, "word", w, "error", err)
			failures = append(failures, WordError{Stage: StageSame, Domain: d.Name, Word: key, Err: err})
			continue
		}
		scores = append(scores, WordScore{Domain: d.Name, Word: key, Value: 1 - sum/float64(m)})
	}
	return scores, failures
}
