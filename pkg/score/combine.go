package score

import (
	"log/slog"
	"math"
	"sort"
)

// Params weights the Attribution Accuracy combination. Alpha in [0, 2]
// balances Same-Domain (alpha > 1) against Cross-Domain (alpha < 1) accuracy;
// Rho > 0 sets how harshly rank misattribution is penalized.
type Params struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Rho   float64 `json:"rho" yaml:"rho"`
}

// DefaultParams balances both metrics with a linear misattribution penalty.
func DefaultParams() Params {
	return Params{Alpha: 1, Rho: 1}
}

// Validate checks 0 <= alpha <= 2 and rho > 0.
func (p Params) Validate() error {
	if math.IsNaN(p.Alpha) || p.Alpha < 0 || p.Alpha > 2 {
		return &InvalidParameterError{Name: "alpha", Value: p.Alpha, Reason: "must be between 0 and 2"}
	}
	if math.IsNaN(p.Rho) || math.IsInf(p.Rho, 0) || p.Rho <= 0 {
		return &InvalidParameterError{Name: "rho", Value: p.Rho, Reason: "must be a finite value greater than 0"}
	}
	return nil
}

// CombineResult holds Attribution Accuracy scores keyed by canonical word.
type CombineResult struct {
	Scores   map[string]float64
	Failures []WordError
}

// Combine merges raw Cross-Domain and Same-Domain scores into
// (alpha*SDD + (2-alpha) / CDD^rho) / 2 per word. Parameters are checked
// before any word is scored.
func Combine(cdd, sdd map[string]float64, p Params) (CombineResult, error) {
	if err := p.Validate(); err != nil {
		return CombineResult{}, err
	}

	words := make([]string, 0, len(cdd))
	for w := range cdd {
		words = append(words, w)
	}
	sort.Strings(words)

	res := CombineResult{Scores: make(map[string]float64, len(words))}
	for _, w := range words {
		s, ok := sdd[w]
		if !ok {
			res.Failures = append(res.Failures, WordError{Stage: StageCombine, Word: w, Err: ErrNoSameDomainScore})
			continue
		}
		v, err := combineWord(w, cdd[w], s, p)
		if err != nil {
			slog.Warn("skipping attribution score", "word", w, "cdd", cdd[w], "sdd", s, "error", err)
			res.Failures = append(res.Failures, WordError{Stage: StageCombine, Word: w, Err: err})
			continue
		}
		res.Scores[w] = v
	}
	return res, nil
}

func combineWord(word string, cdd, sdd float64, p Params) (float64, error) {
	pow := math.Pow(cdd, p.Rho)
	if math.IsInf(pow, 0) || math.IsNaN(pow) {
		return 0, &NumericOverflowError{Word: word, Op: "cdd^rho"}
	}
	v := (p.Alpha*sdd + (2-p.Alpha)*(1/pow)) / 2
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &NumericOverflowError{Word: word, Op: "attribution score"}
	}
	return v, nil
}
