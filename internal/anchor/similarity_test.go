package anchor

import (
	"math"
	"testing"
)

func TestRatioBounds(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "xyz", 0.0},
		{"abc", "", 0.0},
	}
	for _, tc := range cases {
		if got := Ratio(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRatioPartialOverlap(t *testing.T) {
	// "abcd" vs "bcde": longest block "bcd" (3), total 8 -> 0.75.
	if got := Ratio("abcd", "bcde"); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("expected 0.75, got %v", got)
	}
}

func TestRatioSymmetricEnough(t *testing.T) {
	a, b := "driveway installation in miami", "driveway pavers miami"
	r1, r2 := Ratio(a, b), Ratio(b, a)
	if r1 <= 0 || r1 >= 1 {
		t.Errorf("expected partial similarity, got %v", r1)
	}
	if math.Abs(r1-r2) > 0.1 {
		t.Errorf("ratios diverge too much: %v vs %v", r1, r2)
	}
}

func TestRatioUnicode(t *testing.T) {
	if got := Ratio("café", "café"); got != 1.0 {
		t.Errorf("expected 1.0 for identical unicode, got %v", got)
	}
}
