package oracle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/semscore/pkg/vocab"
	"gonum.org/v1/gonum/floats"
)

// Embedding is an oracle over word vectors. Similarity is cosine similarity.
type Embedding struct {
	words []string
	index map[string]int
	unit  [][]float64
}

// NewEmbedding builds an oracle from words and their vectors.
func NewEmbedding(words []string, vectors [][]float64) (*Embedding, error) {
	if len(words) == 0 {
		return nil, errors.New("embedding requires at least one word")
	}
	if len(words) != len(vectors) {
		return nil, fmt.Errorf("embedding has %d words but %d vectors", len(words), len(vectors))
	}
	dim := len(vectors[0])
	e := &Embedding{
		words: make([]string, 0, len(words)),
		index: make(map[string]int, len(words)),
		unit:  make([][]float64, 0, len(words)),
	}
	for i, w := range words {
		c := vocab.Canonical(w)
		if len(vectors[i]) != dim || dim == 0 {
			return nil, fmt.Errorf("vector for %s has %d dimensions, want %d", c, len(vectors[i]), dim)
		}
		// word2vec output is frequency ordered, so the first variant wins.
		if _, ok := e.index[c]; ok {
			slog.Debug("skipping embedding variant", "word", w, "canonical", c)
			continue
		}
		v := append([]float64(nil), vectors[i]...)
		if norm := floats.Norm(v, 2); norm > 0 {
			floats.Scale(1/norm, v)
		}
		e.index[c] = len(e.words)
		e.words = append(e.words, c)
		e.unit = append(e.unit, v)
	}
	return e, nil
}

// LoadEmbedding reads vectors in the word2vec text format: a "count dim"
// header followed by one "word v1 .. vdim" line per word.
func LoadEmbedding(path string) (*Embedding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embedding %s: %w", path, err)
	}
	defer f.Close()

	e, err := ReadEmbedding(f)
	if err != nil {
		return nil, fmt.Errorf("load embedding %s: %w", path, err)
	}
	return e, nil
}

// ReadEmbedding parses the word2vec text format.
func ReadEmbedding(r io.Reader) (*Embedding, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, errors.New("empty embedding input")
	}
	header := strings.Fields(scanner.Text())
	if len(header) != 2 {
		return nil, fmt.Errorf("invalid header %q, want \"count dim\"", scanner.Text())
	}
	count, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("invalid word count: %w", err)
	}
	dim, err := strconv.Atoi(header[1])
	if err != nil || dim < 1 {
		return nil, fmt.Errorf("invalid dimension %q", header[1])
	}

	words := make([]string, 0, count)
	vectors := make([][]float64, 0, count)
	line := 1
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("line %d has %d values, want %d", line, len(fields)-1, dim)
		}
		vec := make([]float64, dim)
		for j, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d value %d: %w", line, j+1, err)
			}
			vec[j] = v
		}
		words = append(words, fields[0])
		vectors = append(vectors, vec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	if len(words) != count {
		return nil, fmt.Errorf("header declares %d words, found %d", count, len(words))
	}
	return NewEmbedding(words, vectors)
}

func (e *Embedding) vector(word string) ([]float64, error) {
	i, ok := e.index[vocab.Canonical(word)]
	if !ok {
		return nil, vocab.Missing(word)
	}
	return e.unit[i], nil
}

// Similarity returns the cosine similarity of a and b.
func (e *Embedding) Similarity(a, b string) (float64, error) {
	va, err := e.vector(a)
	if err != nil {
		return 0, err
	}
	vb, err := e.vector(b)
	if err != nil {
		return 0, err
	}
	return floats.Dot(va, vb), nil
}

// MostSimilar returns the n words closest to word, excluding word itself.
func (e *Embedding) MostSimilar(word string, n int) ([]Neighbor, error) {
	if n < 1 {
		return nil, errors.New("neighbor count must be positive")
	}
	v, err := e.vector(word)
	if err != nil {
		return nil, err
	}
	self := vocab.Canonical(word)
	hits := make([]Neighbor, 0, len(e.words))
	for i, w := range e.words {
		if w == self {
			continue
		}
		hits = append(hits, Neighbor{Word: w, Score: floats.Dot(v, e.unit[i])})
	}
	return topN(hits, n), nil
}

// DoesNotMatch returns the word whose vector is least similar to the mean of
// the unit vectors of the listed words. Words outside the vocabulary are
// ignored; at least one must be known.
func (e *Embedding) DoesNotMatch(words []string) (string, error) {
	known := make([]string, 0, len(words))
	vecs := make([][]float64, 0, len(words))
	for _, w := range words {
		v, err := e.vector(w)
		if err != nil {
			continue
		}
		known = append(known, w)
		vecs = append(vecs, v)
	}
	if len(vecs) == 0 {
		return "", errors.New("none of the words are in the vocabulary")
	}

	mean := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		floats.Add(mean, v)
	}
	if norm := floats.Norm(mean, 2); norm > 0 {
		floats.Scale(1/norm, mean)
	}

	worst, worstSim := 0, floats.Dot(vecs[0], mean)
	for i := 1; i < len(vecs); i++ {
		if sim := floats.Dot(vecs[i], mean); sim < worstSim {
			worst, worstSim = i, sim
		}
	}
	return known[worst], nil
}
