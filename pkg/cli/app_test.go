package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/semscore/pkg/gap"
	"github.com/mchmarny/semscore/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const (
	testMatrix = "\ta\tb\tc\td\n" +
		"a\t1\t1\t0\t0\n" +
		"b\t1\t0\t0\t0\n" +
		"c\t0\t0\t1\t1\n" +
		"d\t1\t1\t0\t1\n"

	testDomains = "1 First\ta\tb\n2 Second\tc\td\n"

	testOracle = "\tsun\tmoon\tstar\tbread\n" +
		"sun\t1\t0.8\t0.7\t-0.2\n" +
		"moon\t0.8\t1\t0.9\t0.1\n" +
		"star\t0.7\t0.9\t1\t0\n" +
		"bread\t-0.2\t0.1\t0\t1\n"

	testGroups = "1 Sky\t2 Food\t3\t1\tsun\tmoon\tstar\tbread\n" +
		"1 Sky\t3 Drink\t2\t1\tsun\tmoon\twine\n"

	testGroupDomains = "1 Sky\tsun\tmoon\tstar\tcomet\n" +
		"2 Food\tbread\tmilk\tcheese\trice\n" +
		"3 Tools\thammer\tsaw\tdrill\tnail\n"
)

// testEnv isolates HOME and the keychain for a command run.
func testEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	keyring.MockInit()
	return t.TempDir()
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(context.Background(), append([]string{appName}, args...))
	return out.String(), err
}

func TestAttributionCommand(t *testing.T) {
	dir := testEnv(t)
	m := writeTestFile(t, dir, "m.tsv", testMatrix)
	d := writeTestFile(t, dir, "domains.tsv", testDomains)
	out := filepath.Join(dir, "out", "scores.tsv")
	db := filepath.Join(dir, "runs.db")

	res, err := runApp(t, "", "--db", db, "attribution", "--matrix", m, "--domains", d, "--out", out, "--save")
	require.NoError(t, err)

	var sum attributionSummary
	require.NoError(t, json.Unmarshal([]byte(res), &sum))
	assert.Equal(t, 2, sum.Domains)
	assert.Equal(t, 4, sum.Scored)
	assert.Equal(t, score.DefaultParams(), sum.Params)
	assert.Empty(t, sum.Failures)
	assert.NotEmpty(t, sum.RunID)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "word\tdomain\tcdd\tsdd\tscore\tbest", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "a\t1 First\t1\t"))

	res, err = runApp(t, "", "--db", db, "runs", "--id", sum.RunID)
	require.NoError(t, err)
	var detail runDetail
	require.NoError(t, json.Unmarshal([]byte(res), &detail))
	assert.Equal(t, sum.RunID, detail.Run.ID)
	assert.Len(t, detail.Scores, 4)

	res, err = runApp(t, "", "--db", db, "runs", "--kind", "attribution")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res), &runs))
	assert.Len(t, runs, 1)

	_, err = runApp(t, "", "--db", db, "runs", "--id", sum.RunID, "--delete")
	require.NoError(t, err)
	_, err = runApp(t, "", "--db", db, "runs", "--id", sum.RunID)
	assert.Error(t, err)
}

func TestAttributionCommand_Overrides(t *testing.T) {
	dir := testEnv(t)
	m := writeTestFile(t, dir, "m.tsv", testMatrix)
	d := writeTestFile(t, dir, "domains.tsv", testDomains)

	res, err := runApp(t, "", "attribution", "--matrix", m, "--domains", d, "--alpha", "0.5", "--rho", "2")
	require.NoError(t, err)
	var sum attributionSummary
	require.NoError(t, json.Unmarshal([]byte(res), &sum))
	assert.Equal(t, score.Params{Alpha: 0.5, Rho: 2}, sum.Params)
	assert.Empty(t, sum.RunID)

	_, err = runApp(t, "", "attribution", "--matrix", m, "--domains", d, "--alpha", "3")
	var ip *score.InvalidParameterError
	assert.ErrorAs(t, err, &ip)

	_, err = runApp(t, "", "attribution", "--matrix", filepath.Join(dir, "missing.tsv"), "--domains", d)
	assert.Error(t, err)
}

func TestGapCommand(t *testing.T) {
	dir := testEnv(t)
	o := writeTestFile(t, dir, "oracle.tsv", testOracle)
	g := writeTestFile(t, dir, "groups.tsv", testGroups)
	f := writeTestFile(t, dir, "freq.tsv", "sun\t3\nbread\t1\n")
	reports := filepath.Join(dir, "reports")
	out := filepath.Join(reports, "table.tsv")

	res, err := runApp(t, "", "gap", "--oracle", o, "--groups", g, "--freq", f, "--top", "2", "--out", out, "--save")
	require.NoError(t, err)

	var sum gapSummary
	require.NoError(t, json.Unmarshal([]byte(res), &sum))
	assert.Equal(t, 2, sum.Groups)
	assert.Equal(t, 1, sum.Scored)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.GapCorrect)
	assert.InDelta(t, 0.05/3, sum.MeanDifference, 1e-9)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, 1, sum.Failures[0].Row)
	assert.NotEmpty(t, sum.RunID)
	assert.FileExists(t, out)

	res, err = runApp(t, "", "summarize", "--dir", reports, "--out", filepath.Join(dir, "summary.tsv"))
	require.NoError(t, err)
	var list []gap.Summary
	require.NoError(t, json.Unmarshal([]byte(res), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "table.tsv", list[0].Name)
	assert.Equal(t, 1, list[0].Rows)
	assert.Equal(t, 1, list[0].GapCorrect)
	assert.FileExists(t, filepath.Join(dir, "summary.tsv"))

	_, err = runApp(t, "", "gap", "--oracle", o, "--groups", g, "--kind", "bogus")
	assert.Error(t, err)
}

func TestGraphCommand(t *testing.T) {
	dir := testEnv(t)
	o := writeTestFile(t, dir, "oracle.tsv", testOracle)
	words := writeTestFile(t, dir, "words.txt", "sun\nghost\n")
	out := filepath.Join(dir, "graph", "sky")

	res, err := runApp(t, "", "graph", "--oracle", o, "--words", words, "--top", "1", "--out", out)
	require.NoError(t, err)

	var sum graphSummary
	require.NoError(t, json.Unmarshal([]byte(res), &sum))
	assert.Equal(t, 1, sum.Inputs)
	assert.Equal(t, 2, sum.Nodes)
	assert.Equal(t, 2, sum.Edges)
	assert.Equal(t, []string{"ghost"}, sum.Dropped)

	nodes, err := os.ReadFile(out + gap.NodesSuffix)
	require.NoError(t, err)
	assert.Equal(t, "id\tlabel\ttype\n0\tsun\t1\n1\tmoon\t0\n", string(nodes))
	assert.FileExists(t, out+gap.EdgesSuffix)

	missing := writeTestFile(t, dir, "missing.txt", "ghost\n")
	_, err = runApp(t, "", "graph", "--oracle", o, "--words", missing, "--out", out)
	assert.ErrorIs(t, err, gap.ErrNoGraphWords)
}

func TestGroupsCommand(t *testing.T) {
	dir := testEnv(t)
	d := writeTestFile(t, dir, "domains.tsv", testGroupDomains)

	first, err := runApp(t, "", "groups", "--domains", d, "--seed", "7")
	require.NoError(t, err)
	second, err := runApp(t, "", "groups", "--domains", d, "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	groups, err := gap.ParseTestGroups(strings.NewReader(first))
	require.NoError(t, err)
	assert.Len(t, groups, 6)
	for _, g := range groups {
		assert.Len(t, g.Fitting, 3)
		assert.Len(t, g.Alien, 1)
		assert.NotEqual(t, g.Domain1, g.Domain2)
	}

	out := filepath.Join(dir, "groups.tsv")
	res, err := runApp(t, "", "groups", "--domains", d, "--seed", "7", "--pairs", "2", "--fitting", "2", "--out", out)
	require.NoError(t, err)
	var sum groupsSummary
	require.NoError(t, json.Unmarshal([]byte(res), &sum))
	assert.Equal(t, 2, sum.Groups)
	assert.Equal(t, int64(7), sum.Seed)

	loaded, err := gap.LoadTestGroups(out)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Len(t, loaded[0].Fitting, 2)
}

func TestTokenCommand(t *testing.T) {
	testEnv(t)

	res, err := runApp(t, "", "token")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stored": false}`, res)

	res, err = runApp(t, "s3cret\n", "token", "--set")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stored": true}`, res)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	token, err := getSourceToken(filepath.Join(home, "."+appName))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", token)

	res, err = runApp(t, "", "token", "--clear")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stored": false}`, res)

	_, err = runApp(t, "\n", "token", "--set")
	assert.Error(t, err)
}

func TestTokenFileFallback(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, saveSourceTokenFile(home, "from-file\n"))
	token, err := getSourceTokenFile(home)
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)

	require.NoError(t, clearSourceToken(home))
	_, err = getSourceTokenFile(home)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	dir := testEnv(t)
	res, err := runApp(t, "", "--format", "yaml", "summarize", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", res)
}

func TestConfigFlag(t *testing.T) {
	dir := testEnv(t)
	cfg := writeTestFile(t, dir, "config.yaml", "scoring:\n  alpha: 2\n")
	m := writeTestFile(t, dir, "m.tsv", testMatrix)
	d := writeTestFile(t, dir, "domains.tsv", testDomains)

	res, err := runApp(t, "", "--config", cfg, "attribution", "--matrix", m, "--domains", d)
	require.NoError(t, err)
	var sum attributionSummary
	require.NoError(t, json.Unmarshal([]byte(res), &sum))
	assert.Equal(t, 2.0, sum.Params.Alpha)

	bad := writeTestFile(t, dir, "bad.yaml", "gap:\n  top_n: 0\n")
	_, err = runApp(t, "", "--config", bad, "summarize", "--dir", dir)
	assert.Error(t, err)
}
