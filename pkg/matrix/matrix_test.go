package matrix

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mchmarny/semscore/pkg/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMatrix = "\tA\tb\tc\n" +
	"a\t1\t0.5\t-1\n" +
	"B\t0.25\t1\t0\n" +
	"c\t2\t3\t4\n"

func TestLoad(t *testing.T) {
	m, err := Load(strings.NewReader(testMatrix))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"a", "b", "c"}, m.Words())

	row, err := m.Row("C")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, row)

	v, err := m.Value("a", "C")
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)

	assert.True(t, m.Has("A"))
	assert.False(t, m.Has("d"))
}

func TestRow_Missing(t *testing.T) {
	m, err := Load(strings.NewReader(testMatrix))
	require.NoError(t, err)

	_, err = m.Row("zeta")
	assert.True(t, vocab.IsMissing(err))

	_, err = m.Value("a", "zeta")
	assert.True(t, vocab.IsMissing(err))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no columns", "x\n"},
		{"short row", "\ta\tb\na\t1\nb\t1\t2\n"},
		{"order mismatch", "\ta\tb\nb\t1\t2\na\t1\t2\n"},
		{"not a number", "\ta\na\tx\n"},
		{"too many rows", "\ta\na\t1\nb\t1\n"},
		{"missing rows", "\ta\tb\na\t1\t2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestNew_Duplicate(t *testing.T) {
	_, err := New([]string{"a", "A"}, [][]float64{{1, 2}, {3, 4}})
	assert.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	m, err := Load(strings.NewReader(testMatrix))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	m2, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Words(), m2.Words())
	for _, w := range m.Words() {
		r1, _ := m.Row(w)
		r2, _ := m2.Row(w)
		assert.Equal(t, r1, r2)
	}
}
