package gap

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraph(t *testing.T) {
	g, err := NewGraph(loadTestOracle(t), []string{"sun", "ghost", "SUN", "", "bread"}, 2)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 4)
	assert.Equal(t, 2, g.Inputs())
	assert.Equal(t, []string{"ghost"}, g.Dropped)

	labels := make([]string, 0, len(g.Nodes))
	for i, n := range g.Nodes {
		assert.Equal(t, i, n.ID)
		labels = append(labels, n.Label)
	}
	assert.Equal(t, []string{"sun", "bread", "moon", "star"}, labels)

	// every ordered pair of distinct nodes
	require.Len(t, g.Edges, 4*3)
	assert.Equal(t, Edge{Source: 0, Target: 2, Weight: 0.8}, g.Edges[1])
	for _, e := range g.Edges {
		assert.NotEqual(t, e.Source, e.Target)
	}
}

func TestNewGraph_Errors(t *testing.T) {
	o := loadTestOracle(t)

	_, err := NewGraph(o, []string{"ghost", "phantom"}, 2)
	assert.ErrorIs(t, err, ErrNoGraphWords)

	_, err = NewGraph(o, []string{"sun"}, 0)
	assert.Error(t, err)

	_, err = NewGraph(nil, []string{"sun"}, 1)
	assert.Error(t, err)
}

func TestGraph_Write(t *testing.T) {
	g, err := NewGraph(loadTestOracle(t), []string{"sun", "bread"}, 2)
	require.NoError(t, err)

	var nodes bytes.Buffer
	require.NoError(t, g.WriteNodes(&nodes))
	assert.Equal(t, "id\tlabel\ttype\n0\tsun\t1\n1\tbread\t1\n2\tmoon\t0\n3\tstar\t0\n", nodes.String())

	var edges bytes.Buffer
	require.NoError(t, g.WriteEdges(&edges))
	lines := strings.Split(strings.TrimSpace(edges.String()), "\n")
	require.Len(t, lines, 1+len(g.Edges))
	assert.Equal(t, "source\ttarget\tweight", lines[0])
	assert.Equal(t, "0\t1\t-0.2", lines[1])
}

func TestLoadWords(t *testing.T) {
	p := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(p, []byte("sun\n\n  moon \r\nstar"), 0o600))

	words, err := LoadWords(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"sun", "moon", "star"}, words)

	_, err = LoadWords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
