package gap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mchmarny/semscore/pkg/domain"
	"github.com/mchmarny/semscore/pkg/matrix"
	"github.com/mchmarny/semscore/pkg/oracle"
	"github.com/mchmarny/semscore/pkg/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	delta = 1e-9

	testTable = "\tsun\tmoon\tstar\tbread\n" +
		"sun\t1\t0.8\t0.7\t-0.2\n" +
		"moon\t0.8\t1\t0.9\t0.1\n" +
		"star\t0.7\t0.9\t1\t0\n" +
		"bread\t-0.2\t0.1\t0\t1\n"
)

func loadTestOracle(t *testing.T) *oracle.Table {
	t.Helper()
	m, err := matrix.Load(strings.NewReader(testTable))
	require.NoError(t, err)
	return oracle.NewTable(m)
}

var skyGroup = domain.TestGroup{
	Domain1: "1 Sky",
	Domain2: "2 Food",
	Fitting: []string{"sun", "moon", "star"},
	Alien:   []string{"bread"},
}

// stubOracle serves fixed answers and counts neighbor lookups.
type stubOracle struct {
	sims      map[string]float64
	neighbors map[string][]oracle.Neighbor
	calls     atomic.Int32
}

func (s *stubOracle) Similarity(a, b string) (float64, error) {
	v, ok := s.sims[a+"|"+b]
	if !ok {
		return 0, vocab.Missing(b)
	}
	return v, nil
}

func (s *stubOracle) MostSimilar(word string, n int) ([]oracle.Neighbor, error) {
	s.calls.Add(1)
	hits, ok := s.neighbors[word]
	if !ok {
		return nil, vocab.Missing(word)
	}
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// detectingOracle adds a fixed outlier prediction.
type detectingOracle struct {
	*oracle.Table
	odd string
}

func (d detectingOracle) DoesNotMatch([]string) (string, error) {
	return d.odd, nil
}

func TestRun_TopScore(t *testing.T) {
	r := New(loadTestOracle(t), WithTopN(2)).NewRun()

	v, err := r.TopScore("sun")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, v, delta)

	v, err = r.TopScore("bread")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, v, delta)

	_, err = r.TopScore("wine")
	assert.True(t, vocab.IsMissing(err))
}

func TestRun_TopScoreMemoized(t *testing.T) {
	s := &stubOracle{
		neighbors: map[string][]oracle.Neighbor{"a": {{Word: "b", Score: 0.5}}},
	}
	e := New(s)
	r := e.NewRun()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.TopScore("a")
			assert.NoError(t, err)
			assert.InDelta(t, 0.5, v, delta)
		}()
	}
	wg.Wait()
	first := s.calls.Load()
	assert.GreaterOrEqual(t, first, int32(1))

	_, err := r.TopScore("A")
	require.NoError(t, err)
	assert.Equal(t, first, s.calls.Load())

	// a new run starts with an empty memo
	_, err = e.NewRun().TopScore("a")
	require.NoError(t, err)
	assert.Equal(t, first+1, s.calls.Load())
}

func TestRun_GapScoreClampsNegativeSimilarity(t *testing.T) {
	s := &stubOracle{
		sims: map[string]float64{"a|b": -0.5},
		neighbors: map[string][]oracle.Neighbor{
			"a": {{Word: "x", Score: 0.9}, {Word: "y", Score: 0.7}},
		},
	}
	r := New(s).NewRun()
	v, err := r.GapScore("a", []string{"b"})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, delta)
}

func TestRun_GapScore(t *testing.T) {
	r := New(loadTestOracle(t), WithTopN(2)).NewRun()

	v, err := r.GapScore("bread", []string{"sun", "moon", "star"})
	require.NoError(t, err)
	assert.InDelta(t, 0.05/3, v, delta)

	permuted, err := r.GapScore("bread", []string{"star", "sun", "moon"})
	require.NoError(t, err)
	assert.InDelta(t, v, permuted, delta)

	_, err = r.GapScore("bread", nil)
	assert.ErrorIs(t, err, ErrNoTargets)

	_, err = r.GapScore("bread", []string{"wine"})
	assert.True(t, vocab.IsMissing(err))
}

func TestRun_SingleScore(t *testing.T) {
	r := New(loadTestOracle(t), WithTopN(2)).NewRun()
	good, outlier, err := r.SingleScore(skyGroup.Fitting, skyGroup.Alien)
	require.NoError(t, err)
	require.Len(t, good, 3)
	require.Len(t, outlier, 1)
	for _, g := range good {
		assert.InDelta(t, 0, g, delta)
	}
	assert.InDelta(t, 0.05/3, outlier[0], delta)

	_, _, err = r.SingleScore([]string{"sun"}, []string{"bread"})
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestEvaluator_Evaluate(t *testing.T) {
	freq := oracle.Frequencies{"sun": 7, "bread": 2}
	e := New(loadTestOracle(t), WithTopN(2), WithFrequencies(freq), WithWorkers(2))

	broken := domain.TestGroup{Domain1: "1 Sky", Domain2: "3 Drink", Fitting: []string{"sun", "moon"}, Alien: []string{"wine"}}
	rep, err := e.Evaluate(context.Background(), []domain.TestGroup{skyGroup, broken, skyGroup})
	require.NoError(t, err)

	require.Len(t, rep.Results, 2)
	assert.Equal(t, 0, rep.Results[0].Row)
	assert.Equal(t, 2, rep.Results[1].Row)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, 1, rep.Failures[0].Row)
	assert.True(t, vocab.IsMissing(rep.Failures[0]))

	res := rep.Results[0]
	assert.InDelta(t, 0.05/3, res.Difference, delta)
	assert.Equal(t, []int{7, 0, 0, 2}, res.Occurrences)
	assert.Equal(t, oracle.Neighbor{Word: "moon", Score: 0.8}, res.Neighbors[0])
	assert.Equal(t, oracle.Neighbor{Word: "moon", Score: 0.1}, res.Neighbors[3])
	assert.Empty(t, res.Prediction)
	assert.False(t, res.PredictionCorrect)

	assert.Equal(t, 2, rep.Positive())
	assert.Equal(t, 0, rep.Correct())
	assert.InDelta(t, 0.05/3, rep.MeanDifference(), delta)
}

func TestEvaluator_Prediction(t *testing.T) {
	tests := []struct {
		name    string
		odd     string
		correct bool
	}{
		{name: "alien", odd: "bread", correct: true},
		{name: "alien case", odd: "Bread", correct: true},
		{name: "fitting", odd: "moon", correct: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(detectingOracle{Table: loadTestOracle(t), odd: tt.odd})
			rep, err := e.Evaluate(context.Background(), []domain.TestGroup{skyGroup})
			require.NoError(t, err)
			require.Len(t, rep.Results, 1)
			assert.Equal(t, tt.odd, rep.Results[0].Prediction)
			assert.Equal(t, tt.correct, rep.Results[0].PredictionCorrect)
		})
	}
}

func TestEvaluator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(loadTestOracle(t)).Evaluate(ctx, []domain.TestGroup{skyGroup})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTestGroups_RoundTrip(t *testing.T) {
	in := "1 Sky\t2 Food\t3\t1\tsun\tmoon\tstar\tbread\n" +
		"\n" +
		"2 Food\t1 Sky\t1\t2\tbread\tsun\tmoon\n"
	groups, err := ParseTestGroups(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, skyGroup, groups[0])
	assert.Equal(t, []string{"sun", "moon"}, groups[1].Alien)

	var buf bytes.Buffer
	require.NoError(t, WriteTestGroups(&buf, groups))
	assert.Equal(t, strings.Replace(in, "\n\n", "\n", 1), buf.String())
}

func TestParseTestGroups_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "a\tb\t1\n", want: "line 1"},
		{name: "count", in: "a\tb\tx\t1\tw\n", want: "fitting count"},
		{name: "alien", in: "a\tb\t1\t-1\tw\n", want: "alien count"},
		{name: "mismatch", in: "a\tb\t1\t1\tw\tv\n\na\tb\t2\t1\tw\tv\n", want: "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTestGroups(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteTestGroups_RejectsTabs(t *testing.T) {
	g := skyGroup
	g.Alien = []string{"bad\tword"}
	err := WriteTestGroups(&bytes.Buffer{}, []domain.TestGroup{g})
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	e := New(detectingOracle{Table: loadTestOracle(t), odd: "bread"}, WithTopN(2))
	rep, err := e.Evaluate(context.Background(), []domain.TestGroup{skyGroup})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, rep))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	header := strings.Split(lines[0], "\t")
	assert.Equal(t, []string{
		"MeanGapScoreDifference",
		"IntraDomainWord", "IntraDomainWord", "IntraDomainWord",
		"ExtraDomainWord",
		"OracleOutlierPrediction", "OraclePredictionCorrect",
		"Occurrences W0", "Occurrences W1", "Occurrences W2", "Occurrences W3",
		"NearestNeighbor W0", "NearestNeighbor W1", "NearestNeighbor W2", "NearestNeighbor W3",
	}, header)

	row := strings.Split(lines[1], "\t")
	require.Len(t, row, len(header))
	assert.Equal(t, []string{"sun", "moon", "star", "bread"}, row[1:5])
	assert.Equal(t, []string{"bread", "1"}, row[5:7])
	assert.Equal(t, "moon ; 0.8", row[11])

	s, err := Summarize("sky.tsv", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Rows)
	assert.Equal(t, 1, s.GapCorrect)
	assert.Equal(t, 1, s.OracleCorrect)
	assert.InDelta(t, 0.05/3, s.Average, delta)
}

func TestWriteReport_NoPrediction(t *testing.T) {
	rep, err := New(loadTestOracle(t)).Evaluate(context.Background(), []domain.TestGroup{skyGroup})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, rep))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	row := strings.Split(lines[1], "\t")
	assert.Equal(t, []string{"None", "0"}, row[5:7])
}

func TestWriteReport_MixedShapes(t *testing.T) {
	pair := domain.TestGroup{Domain1: "1 Sky", Domain2: "2 Food", Fitting: []string{"moon", "star"}, Alien: []string{"bread"}}
	rep, err := New(loadTestOracle(t), WithTopN(2)).Evaluate(context.Background(), []domain.TestGroup{skyGroup, pair})
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)

	var buf bytes.Buffer
	err = WriteReport(&buf, rep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Zero(t, buf.Len())
}

func TestSummarize(t *testing.T) {
	in := "MeanGapScoreDifference\tIntraDomainWord\tExtraDomainWord\tOracleOutlierPrediction\tOraclePredictionCorrect\n" +
		"0.5\ta\tb\tb\t1\n" +
		"-0.25\tc\td\tc\t0\n" +
		"0.25\te\tf\tNone\t0\n"
	s, err := Summarize("r", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, Summary{Name: "r", Rows: 3, GapCorrect: 2, OracleCorrect: 1, Average: 0.5 / 3}, s)

	s, err = Summarize("empty", strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, s.Rows)

	_, err = Summarize("bad", strings.NewReader("Mean\tOther\n"))
	assert.Error(t, err)

	_, err = Summarize("bad", strings.NewReader(in+"x\ta\tb\tc\t0\n"))
	assert.Error(t, err)
}

func TestSummarizeDir(t *testing.T) {
	dir := t.TempDir()
	rep, err := New(loadTestOracle(t), WithTopN(2)).Evaluate(context.Background(), []domain.TestGroup{skyGroup})
	require.NoError(t, err)

	for _, name := range []string{"b.tsv", "a.tsv"} {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, rep))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600))
	}

	list, err := SummarizeDir(dir)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.tsv", list[0].Name)
	assert.Equal(t, 1, list[1].GapCorrect)

	var out bytes.Buffer
	require.NoError(t, WriteSummaries(&out, list))
	assert.True(t, strings.HasPrefix(out.String(), "File\tGapScoreCorrect\tOracleCorrect\tGapScoreAverage\tRows\n"))
	assert.Contains(t, out.String(), "a.tsv\t1\t0\t")
}
