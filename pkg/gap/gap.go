// Package gap implements the GAP evaluator, which scores a similarity oracle
// against curated groups of fitting and alien words.
package gap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/oracle"
	"github.com/mchmarny/semscore/pkg/vocab"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// TopNDefault is the number of nearest neighbors averaged into a word's top score.
const TopNDefault = 5

// ErrNoTargets is returned for a GAP score over an empty target list.
var ErrNoTargets = errors.New("gap score requires at least one target")

// FrequencySource reports corpus occurrences of a word.
type FrequencySource interface {
	Occurrences(word string) int
}

// Evaluator scores an oracle against test groups.
type Evaluator struct {
	oracle   oracle.Oracle
	detector oracle.OutlierDetector
	freq     FrequencySource
	topN     int
	workers  int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTopN sets how many nearest neighbors make up the top score.
func WithTopN(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.topN = n
		}
	}
}

// WithFrequencies sets the source of per-word occurrence counts.
func WithFrequencies(f FrequencySource) Option {
	return func(e *Evaluator) {
		e.freq = f
	}
}

// WithWorkers sets how many test groups are evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New returns an evaluator over o. When o can detect outliers, its
// predictions are included in reports.
func New(o oracle.Oracle, opts ...Option) *Evaluator {
	e := &Evaluator{
		oracle:  o,
		freq:    oracle.Frequencies{},
		topN:    TopNDefault,
		workers: runtime.NumCPU(),
	}
	if d, ok := o.(oracle.OutlierDetector); ok {
		e.detector = d
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run is one evaluation run. It owns the memo of top scores, so separate runs
// never share state. A Run is safe for concurrent use; a race on the memo can
// only cause a recomputation.
type Run struct {
	e   *Evaluator
	mu  sync.RWMutex
	top map[string]float64
}

// NewRun starts an evaluation run with an empty memo.
func (e *Evaluator) NewRun() *Run {
	return &Run{e: e, top: make(map[string]float64)}
}

// TopScore returns the mean similarity of source's top-N nearest neighbors.
func (r *Run) TopScore(source string) (float64, error) {
	key := vocab.Canonical(source)
	r.mu.RLock()
	v, ok := r.top[key]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	hits, err := r.e.oracle.MostSimilar(source, r.e.topN)
	if err != nil {
		return 0, fmt.Errorf("nearest neighbors of %s: %w", source, err)
	}
	if len(hits) == 0 {
		return 0, fmt.Errorf("no neighbors for %s", source)
	}
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
	}
	v = stat.Mean(scores, nil)

	r.mu.Lock()
	r.top[key] = v
	r.mu.Unlock()
	return v, nil
}

// GapScore returns the mean over targets of
// TopScore(source) - max(similarity(source, target), 0).
func (r *Run) GapScore(source string, targets []string) (float64, error) {
	if len(targets) == 0 {
		return 0, ErrNoTargets
	}
	top, err := r.TopScore(source)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range targets {
		sim, err := r.e.oracle.Similarity(source, t)
		if err != nil {
			return 0, fmt.Errorf("similarity of %s and %s: %w", source, t, err)
		}
		sum += top - math.Max(sim, 0)
	}
	return sum / float64(len(targets)), nil
}

// SingleScore scores each fitting word against the other fitting words and
// each alien word against all fitting words, keeping input order.
func (r *Run) SingleScore(fitting, alien []string) (good, outlier []float64, err error) {
	good = make([]float64, 0, len(fitting))
	for _, w := range fitting {
		key := vocab.Canonical(w)
		others := make([]string, 0, len(fitting)-1)
		for _, o := range fitting {
			if vocab.Canonical(o) != key {
				others = append(others, o)
			}
		}
		s, err := r.GapScore(w, others)
		if err != nil {
			return nil, nil, fmt.Errorf("fitting word %s: %w", w, err)
		}
		good = append(good, s)
	}

	outlier = make([]float64, 0, len(alien))
	for _, w := range alien {
		s, err := r.GapScore(w, fitting)
		if err != nil {
			return nil, nil, fmt.Errorf("alien word %s: %w", w, err)
		}
		outlier = append(outlier, s)
	}
	return good, outlier, nil
}

// GroupResult is the success variant of a per-group result.
type GroupResult struct {
	Row               int               `json:"row" yaml:"row"`
	Group             domain.TestGroup  `json:"group" yaml:"group"`
	Good              []float64         `json:"good" yaml:"good"`
	Outlier           []float64         `json:"outlier" yaml:"outlier"`
	Difference        float64           `json:"difference" yaml:"difference"`
	Prediction        string            `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	PredictionCorrect bool              `json:"prediction_correct" yaml:"predictionCorrect"`
	Occurrences       []int             `json:"occurrences" yaml:"occurrences"`
	Neighbors         []oracle.Neighbor `json:"neighbors" yaml:"neighbors"`
}

// RowError is the failure variant of a per-group result.
type RowError struct {
	Row   int              `json:"row" yaml:"row"`
	Group domain.TestGroup `json:"group" yaml:"group"`
	Err   error            `json:"-" yaml:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s / %s): %v", e.Row, e.Group.Domain1, e.Group.Domain2, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Report holds the successfully scored groups in row order and the rows that failed.
type Report struct {
	Results  []GroupResult `json:"results" yaml:"results"`
	Failures []RowError    `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// MeanDifference averages the group differences, 0 without results.
func (r *Report) MeanDifference() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	var sum float64
	for _, g := range r.Results {
		sum += g.Difference
	}
	return sum / float64(len(r.Results))
}

// Positive counts groups whose alien words sit farther out than the fitting words.
func (r *Report) Positive() int {
	n := 0
	for _, g := range r.Results {
		if g.Difference > 0 {
			n++
		}
	}
	return n
}

// Correct counts groups where the oracle's own outlier prediction was an alien word.
func (r *Report) Correct() int {
	n := 0
	for _, g := range r.Results {
		if g.PredictionCorrect {
			n++
		}
	}
	return n
}

// Evaluate scores every group in a fresh run. Groups run concurrently and a
// failing group is logged and recorded without stopping the others. The
// error is non-nil only when ctx is done.
func (e *Evaluator) Evaluate(ctx context.Context, groups []domain.TestGroup) (*Report, error) {
	run := e.NewRun()
	results := make([]*GroupResult, len(groups))
	errs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, tg := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = run.scoreGroup(i, tg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating test groups: %w", err)
	}

	rep := &Report{Results: make([]GroupResult, 0, len(groups))}
	for i := range groups {
		if errs[i] != nil {
			slog.Warn("skipping failing test group", "row", i, "error", errs[i])
			rep.Failures = append(rep.Failures, RowError{Row: i, Group: groups[i], Err: errs[i]})
			continue
		}
		rep.Results = append(rep.Results, *results[i])
	}

	slog.Info("test groups evaluated",
		"groups", len(groups),
		"scored", len(rep.Results),
		"failed", len(rep.Failures),
	)
	return rep, nil
}

func (r *Run) scoreGroup(row int, tg domain.TestGroup) (*GroupResult, error) {
	good, outlier, err := r.SingleScore(tg.Fitting, tg.Alien)
	if err != nil {
		return nil, err
	}
	if len(good) == 0 || len(outlier) == 0 {
		return nil, errors.New("group needs fitting and alien words")
	}

	res := &GroupResult{
		Row:        row,
		Group:      tg,
		Good:       good,
		Outlier:    outlier,
		Difference: stat.Mean(outlier, nil) - stat.Mean(good, nil),
	}

	words := tg.Words()
	res.Occurrences = make([]int, len(words))
	res.Neighbors = make([]oracle.Neighbor, len(words))
	for i, w := range words {
		res.Occurrences[i] = r.e.freq.Occurrences(w)
		hits, err := r.e.oracle.MostSimilar(w, 1)
		if err != nil {
			return nil, fmt.Errorf("nearest neighbor of %s: %w", w, err)
		}
		if len(hits) > 0 {
			res.Neighbors[i] = hits[0]
		}
	}

	if r.e.detector != nil {
		odd, err := r.e.detector.DoesNotMatch(words)
		if err != nil {
			return nil, fmt.Errorf("outlier prediction: %w", err)
		}
		res.Prediction = odd
		for _, a := range tg.Alien {
			if vocab.Canonical(a) == vocab.Canonical(odd) {
				res.PredictionCorrect = true
				break
			}
		}
	}
	return res, nil
}
