package usecase

import (
	"math"
	"strings"
	"testing"
)

func TestSequenceRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		{"identical", "cordless drill", "cordless drill", 1.0},
		{"shifted", "abcd", "bcde", 0.75},
		{"swapped pair", "ab", "ba", 0.5},
		{"disjoint", "abc", "xyz", 0.0},
		{"prefix", "nike", "nike air", 2.0 * 4 / 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sequenceRatio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("sequenceRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSequenceRatio_PopularCharacters(t *testing.T) {
	// every character of b is popular once b reaches 200 characters, so the
	// block is found only by growing over them
	long := strings.Repeat("a", 200)

	if got := sequenceRatio(long, long); got != 1.0 {
		t.Errorf("sequenceRatio(long, long) = %v, want 1.0", got)
	}
}

func TestSequenceRatio_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"dewalt 20v cordless drill", "dewalt cordless drill 20v"},
		{"miller trousers", "pilar floor lamp white terrazzo"},
		{"a days march", "a day s march"},
	}

	for _, p := range pairs {
		got := sequenceRatio(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("sequenceRatio(%q, %q) = %v, want within [0, 1]", p[0], p[1], got)
		}
	}
}
