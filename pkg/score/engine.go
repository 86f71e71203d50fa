package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/vocab"
	"golang.org/x/sync/errgroup"
)

// Engine runs the full attribution pipeline: centroids, Cross-Domain and
// Same-Domain accuracy, and their combination.
type Engine struct {
	Rows    Rows
	Domains domain.Set
	Params  Params
	Delta   float64
	Workers int
}

// NewEngine returns an engine with default parameters.
func NewEngine(rows Rows, s domain.Set) *Engine {
	return &Engine{
		Rows:    rows,
		Domains: s,
		Params:  DefaultParams(),
		Delta:   DeltaDefault,
		Workers: runtime.NumCPU(),
	}
}

// Attribution is the outcome of one engine run. Score maps are keyed by
// canonical word; a word listed under several domains takes the scores of the
// last of them in set order.
type Attribution struct {
	Centroids Centroids          `json:"centroids" yaml:"centroids"`
	CDD       map[string]float64 `json:"cdd" yaml:"cdd"`
	SDD       map[string]float64 `json:"sdd" yaml:"sdd"`
	Combined  map[string]float64 `json:"combined" yaml:"combined"`
	Ranks     map[string]int     `json:"ranks" yaml:"ranks"`
	Best      map[string]bool    `json:"best" yaml:"best"`
	Owner     map[string]string  `json:"owner" yaml:"owner"`
	Failures  []WordError        `json:"failures,omitempty" yaml:"failures,omitempty"`
	domains   domain.Set
}

// WordRecord is one fully scored word.
type WordRecord struct {
	Domain string  `json:"domain" yaml:"domain"`
	Word   string  `json:"word" yaml:"word"`
	CDD    float64 `json:"cdd" yaml:"cdd"`
	SDD    float64 `json:"sdd" yaml:"sdd"`
	Score  float64 `json:"score" yaml:"score"`
	Rank   int     `json:"rank" yaml:"rank"`
	Best   bool    `json:"best" yaml:"best"`
}

// Records lists the words with a combined score in domain order.
func (a *Attribution) Records() []WordRecord {
	out := make([]WordRecord, 0, len(a.Combined))
	seen := make(map[string]struct{}, len(a.Combined))
	for _, d := range a.domains {
		for _, w := range d.Words {
			key := vocab.Canonical(w)
			if a.Owner[key] != d.Name {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			v, ok := a.Combined[key]
			if !ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, WordRecord{
				Domain: d.Name,
				Word:   key,
				CDD:    a.CDD[key],
				SDD:    a.SDD[key],
				Score:  v,
				Rank:   a.Ranks[key],
				Best:   a.Best[key],
			})
		}
	}
	return out
}

// Mean returns the average combined score, or NaN without scores.
func (a *Attribution) Mean() float64 {
	if len(a.Combined) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range a.Combined {
		sum += v
	}
	return sum / float64(len(a.Combined))
}

type domainScores struct {
	cross    []WordScore
	same     []WordScore
	failures []WordError
}

// Run scores every domain. Domains are independent units of work and run on
// up to Workers goroutines; results are merged in set order. Only invalid
// parameters, empty inputs and cancellation are returned as errors; every
// per-word or per-domain failure is recorded in Attribution.Failures.
func (e *Engine) Run(ctx context.Context) (*Attribution, error) {
	if err := e.Params.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(e.Delta) || math.IsInf(e.Delta, 0) {
		return nil, &InvalidParameterError{Name: "delta", Value: e.Delta, Reason: "must be finite"}
	}
	if e.Rows == nil {
		return nil, errors.New("association matrix required")
	}
	if err := e.Domains.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domains: %w", err)
	}

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	cents := make(Centroids, len(e.Domains))
	centErrs := make([]error, len(e.Domains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range e.Domains {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cents[i], centErrs[i] = NewCentroid(e.Rows, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("computing centroids: %w", err)
	}

	parts := make([]domainScores, len(e.Domains))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range e.Domains {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cross, cf := crossDomainScores(e.Rows, d, cents[i], cents)
			same, sf := sameDomainScores(e.Rows, d, e.Delta)
			parts[i] = domainScores{cross: cross, same: same, failures: append(cf, sf...)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring domains: %w", err)
	}

	a := &Attribution{
		Centroids: cents,
		CDD:       make(map[string]float64),
		SDD:       make(map[string]float64),
		Ranks:     make(map[string]int),
		Best:      make(map[string]bool),
		Owner:     make(map[string]string),
		domains:   e.Domains,
	}
	for i, d := range e.Domains {
		if centErrs[i] != nil {
			a.Failures = append(a.Failures, WordError{Stage: StageCentroid, Domain: d.Name, Err: centErrs[i]})
		}
	}
	for i, d := range e.Domains {
		p := parts[i]
		a.Failures = append(a.Failures, p.failures...)
		for _, ws := range append(append([]WordScore(nil), p.cross...), p.same...) {
			if prev, ok := a.Owner[ws.Word]; ok && prev != d.Name {
				slog.Debug("word listed under several domains", "word", ws.Word, "previous", prev, "domain", d.Name)
				delete(a.CDD, ws.Word)
				delete(a.SDD, ws.Word)
				delete(a.Ranks, ws.Word)
				delete(a.Best, ws.Word)
			}
			a.Owner[ws.Word] = d.Name
		}
		for _, ws := range p.cross {
			a.CDD[ws.Word] = ws.Value
			a.Ranks[ws.Word] = ws.Rank
			a.Best[ws.Word] = ws.Rank == 0
		}
		for _, ws := range p.same {
			a.SDD[ws.Word] = ws.Value
		}
	}

	combined, err := Combine(a.CDD, a.SDD, e.Params)
	if err != nil {
		return nil, err
	}
	a.Combined = combined.Scores
	for _, f := range combined.Failures {
		f.Domain = a.Owner[f.Word]
		a.Failures = append(a.Failures, f)
	}

	slog.Info("attribution scored",
		"domains", len(e.Domains),
		"words", len(a.Combined),
		"failures", len(a.Failures),
	)
	return a, nil
}
