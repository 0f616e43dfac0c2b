package similarity

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"abcde", "abcdf", 0.8},
		{"What is the deadline?", "what is the deadline", 40.0 / 41.0},
		{"where is the library?", "what is the deadline?", 26.0 / 42.0},
		{"ДЕДЛАЙН", "дедлайн", 1},
		{"", "", 0},
		{"", "abc", 0},
	}
	for _, tc := range cases {
		got := Ratio(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Ratio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestIsDuplicateThresholdIsStrict(t *testing.T) {
	g := NewGate(0)
	if g.Threshold != DefaultThreshold {
		t.Fatalf("threshold = %v, want default", g.Threshold)
	}
	if g.IsDuplicate("abcdf", []string{"abcde"}) {
		t.Fatal("ratio exactly at threshold must not be a duplicate")
	}
	if !g.IsDuplicate("abcdeg", []string{"abcdef"}) {
		t.Fatal("ratio above threshold must be a duplicate")
	}
}

func TestIsDuplicateCaseInsensitive(t *testing.T) {
	g := NewGate(DefaultThreshold)
	corpus := []string{"Where is the library?", "WHAT IS THE DEADLINE?"}
	idx, ok := g.Match("what is the deadline?", corpus)
	if !ok || idx != 1 {
		t.Fatalf("Match = (%d, %v), want (1, true)", idx, ok)
	}
}

func TestIsDuplicateEmptyCandidate(t *testing.T) {
	g := NewGate(DefaultThreshold)
	if g.IsDuplicate("", []string{"", "anything"}) {
		t.Fatal("empty candidate is never a duplicate")
	}
}

func TestIsDuplicateEmptyCorpus(t *testing.T) {
	if NewGate(0.5).IsDuplicate("question", nil) {
		t.Fatal("nothing to duplicate in an empty corpus")
	}
}
