package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/mchmarny/semscore/pkg/vocab"
)

const (
	FittingDefault = 3
	AlienDefault   = 1
	MinSizeDefault = 1
	PairsDefault   = 100
)

// ExcludedParentsDefault lists the parent categories of the more syntactic
// domains, which make poor test material.
var ExcludedParentsDefault = []int{89, 90, 91, 92, 93}

// TestGroup is a curated pair of word lists: Fitting words drawn from Domain1
// and Alien words drawn from Domain2.
type TestGroup struct {
	Domain1 string   `json:"domain1" yaml:"domain1"`
	Domain2 string   `json:"domain2" yaml:"domain2"`
	Fitting []string `json:"fitting" yaml:"fitting"`
	Alien   []string `json:"alien" yaml:"alien"`
}

// Words returns the fitting words followed by the alien words.
func (g TestGroup) Words() []string {
	out := make([]string, 0, len(g.Fitting)+len(g.Alien))
	out = append(out, g.Fitting...)
	return append(out, g.Alien...)
}

// Pair is an ordered pair of domain names.
type Pair struct {
	First  string
	Second string
}

// Generator samples test groups from a domain set.
type Generator struct {
	Domains         Set
	Fitting         int
	Alien           int
	MinSize         int
	Pairs           int
	ExcludedParents []int
	Rand            *rand.Rand
}

// NewGenerator returns a generator with the default sizes and the given seed.
func NewGenerator(s Set, seed uint64) *Generator {
	return &Generator{
		Domains:         s,
		Fitting:         FittingDefault,
		Alien:           AlienDefault,
		MinSize:         MinSizeDefault,
		Pairs:           PairsDefault,
		ExcludedParents: ExcludedParentsDefault,
		Rand:            rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *Generator) validate() error {
	if len(g.Domains) < 2 {
		return errors.New("at least two domains are required to build test groups")
	}
	if g.Fitting < 2 {
		return fmt.Errorf("fitting count must be at least 2, got %d", g.Fitting)
	}
	if g.Alien < 1 {
		return fmt.Errorf("alien count must be at least 1, got %d", g.Alien)
	}
	if g.Pairs < 1 {
		return fmt.Errorf("pair count must be at least 1, got %d", g.Pairs)
	}
	if g.Rand == nil {
		return errors.New("random source required")
	}
	return nil
}

func (g *Generator) excluded(d Domain) bool {
	p, ok := d.Parent()
	if !ok {
		return false
	}
	for _, e := range g.ExcludedParents {
		if e == p {
			return true
		}
	}
	return false
}

// eligible applies the pairing rules: different domains, different parent
// categories, no excluded parents, large enough, and no shared words.
func (g *Generator) eligible(x, y Domain) bool {
	if x.Name == y.Name || g.excluded(x) || g.excluded(y) {
		return false
	}
	px, okx := x.Parent()
	py, oky := y.Parent()
	if okx && oky && px == py {
		return false
	}
	minSize := g.MinSize
	if len(uniqueWords(x.Words)) < max(minSize, g.Fitting) || len(uniqueWords(y.Words)) < max(minSize, g.Alien) {
		return false
	}
	for _, w := range x.Words {
		if y.Contains(w) {
			return false
		}
	}
	return true
}

// DomainPairs returns up to Pairs distinct eligible ordered pairs in random order.
func (g *Generator) DomainPairs() ([]Pair, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	candidates := make([]Pair, 0)
	for _, x := range g.Domains {
		for _, y := range g.Domains {
			if g.eligible(x, y) {
				candidates = append(candidates, Pair{First: x.Name, Second: y.Name})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no eligible domain pairs")
	}

	g.Rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > g.Pairs {
		candidates = candidates[:g.Pairs]
	} else if len(candidates) < g.Pairs {
		slog.Warn("fewer eligible domain pairs than requested", "eligible", len(candidates), "requested", g.Pairs)
	}
	return candidates, nil
}

// Groups samples one test group per eligible domain pair.
func (g *Generator) Groups() ([]TestGroup, error) {
	pairs, err := g.DomainPairs()
	if err != nil {
		return nil, err
	}

	groups := make([]TestGroup, 0, len(pairs))
	for _, p := range pairs {
		first, _ := g.Domains.Get(p.First)
		second, _ := g.Domains.Get(p.Second)
		groups = append(groups, TestGroup{
			Domain1: p.First,
			Domain2: p.Second,
			Fitting: g.sample(first.Words, g.Fitting),
			Alien:   g.sample(second.Words, g.Alien),
		})
	}
	return groups, nil
}

func (g *Generator) sample(words []string, n int) []string {
	pool := uniqueWords(words)
	perm := g.Rand.Perm(len(pool))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

func uniqueWords(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		c := vocab.Canonical(w)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, w)
	}
	return out
}
