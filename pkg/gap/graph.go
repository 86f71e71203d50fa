package gap

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/semscore/pkg/oracle"
	"github.com/mchmarny/semscore/pkg/vocab"
)

const (
	NodesSuffix = ".nodes.tsv"
	EdgesSuffix = ".edges.tsv"
)

// ErrNoGraphWords is returned when none of the input words are known to the oracle.
var ErrNoGraphWords = errors.New("none of the input words are in the vocabulary")

// Node is a graph vertex. Input is false for words added as neighbors.
type Node struct {
	ID    int    `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Input bool   `json:"input" yaml:"input"`
}

// Edge links two nodes by ID, weighted by their similarity.
type Edge struct {
	Source int     `json:"source" yaml:"source"`
	Target int     `json:"target" yaml:"target"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Graph is the neighborhood of a word list in the oracle's similarity space.
type Graph struct {
	Nodes   []Node   `json:"nodes" yaml:"nodes"`
	Edges   []Edge   `json:"edges" yaml:"edges"`
	Dropped []string `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// NewGraph builds a graph from words and their topN nearest neighbors. Words
// the oracle does not know are dropped. Every ordered pair of distinct nodes
// gets an edge.
func NewGraph(o oracle.Oracle, words []string, topN int) (*Graph, error) {
	if o == nil {
		return nil, errors.New("oracle is required")
	}
	if topN < 1 {
		return nil, fmt.Errorf("neighbor count must be at least 1, got %d", topN)
	}

	g := &Graph{}
	seen := make(map[string]bool, len(words))
	var inputs []string
	for _, w := range words {
		c := vocab.Canonical(w)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if _, err := o.MostSimilar(c, 1); err != nil {
			if !vocab.IsMissing(err) {
				return nil, fmt.Errorf("checking %s: %w", c, err)
			}
			slog.Warn("dropping word not in the vocabulary", "word", w)
			g.Dropped = append(g.Dropped, c)
			continue
		}
		inputs = append(inputs, c)
	}
	if len(inputs) == 0 {
		return nil, ErrNoGraphWords
	}

	labels := append([]string(nil), inputs...)
	for _, w := range inputs {
		hits, err := o.MostSimilar(w, topN)
		if err != nil {
			return nil, fmt.Errorf("neighbors of %s: %w", w, err)
		}
		for _, h := range hits {
			c := vocab.Canonical(h.Word)
			if seen[c] {
				continue
			}
			seen[c] = true
			labels = append(labels, c)
		}
	}

	g.Nodes = make([]Node, len(labels))
	for i, l := range labels {
		g.Nodes[i] = Node{ID: i, Label: l, Input: i < len(inputs)}
	}

	g.Edges = make([]Edge, 0, len(labels)*(len(labels)-1))
	for _, src := range g.Nodes {
		for _, dst := range g.Nodes {
			if src.ID == dst.ID {
				continue
			}
			sim, err := o.Similarity(src.Label, dst.Label)
			if err != nil {
				return nil, fmt.Errorf("similarity of %s and %s: %w", src.Label, dst.Label, err)
			}
			g.Edges = append(g.Edges, Edge{Source: src.ID, Target: dst.ID, Weight: sim})
		}
	}

	slog.Debug("graph built",
		"inputs", len(inputs),
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"dropped", len(g.Dropped),
	)
	return g, nil
}

// Inputs counts the nodes that came from the word list.
func (g *Graph) Inputs() int {
	n := 0
	for _, node := range g.Nodes {
		if node.Input {
			n++
		}
	}
	return n
}

// WriteNodes writes the node table: id, label, type (1 for input words).
func (g *Graph) WriteNodes(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"id", "label", "type"}); err != nil {
		return fmt.Errorf("write nodes header: %w", err)
	}
	for _, n := range g.Nodes {
		kind := "0"
		if n.Input {
			kind = "1"
		}
		if err := cw.Write([]string{strconv.Itoa(n.ID), n.Label, kind}); err != nil {
			return fmt.Errorf("write node %d: %w", n.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush nodes: %w", err)
	}
	return nil
}

// WriteEdges writes the edge table: source, target, weight.
func (g *Graph) WriteEdges(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"source", "target", "weight"}); err != nil {
		return fmt.Errorf("write edges header: %w", err)
	}
	for _, e := range g.Edges {
		rec := []string{
			strconv.Itoa(e.Source),
			strconv.Itoa(e.Target),
			strconv.FormatFloat(e.Weight, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write edge %d-%d: %w", e.Source, e.Target, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush edges: %w", err)
	}
	return nil
}

// LoadWords reads a word list file, one word per line.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list %s: %w", path, err)
	}
	defer f.Close()

	words, err := ReadWords(f)
	if err != nil {
		return nil, fmt.Errorf("load word list %s: %w", path, err)
	}
	return words, nil
}

// ReadWords returns the non-blank lines of r, trimmed.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}
