package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"I have had a cough for three days", 9},
	}
	for _, tt := range tests {
		if got := (Heuristic{}).Count(tt.in); got != tt.want {
			t.Errorf("Count(%q): want %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestTiktokenEmptyTextSkipsLoad(t *testing.T) {
	c := NewTiktoken(nil)
	assert.Equal(t, 0, c.Count(""))
}

func TestTiktokenCountsPositive(t *testing.T) {
	if testing.Short() {
		t.Skip("may download the encoding")
	}
	// Works whether or not the vocabulary can be loaded in this environment.
	c := NewTiktoken(nil)
	n := c.Count("The patient reports chest pain radiating to the left arm.")
	assert.Greater(t, n, 0)
	if !c.Exact() {
		assert.Equal(t, Heuristic{}.Count("The patient reports chest pain radiating to the left arm."), n)
	}
}
