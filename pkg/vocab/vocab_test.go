package vocab

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "Word", "word"},
		{"trim", "  Dog\t", "dog"},
		{"greek", "ΛΟΓΟΥ", "λογου"},
		{"empty", "   ", ""},
		{"decomposed", "Cafe\u0301", "caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestIsMissing(t *testing.T) {
	err := Missing("λογος")
	assert.True(t, IsMissing(err))
	assert.True(t, IsMissing(fmt.Errorf("row lookup: %w", err)))
	assert.False(t, IsMissing(fmt.Errorf("other")))
	assert.Contains(t, err.Error(), "λογος")
}
