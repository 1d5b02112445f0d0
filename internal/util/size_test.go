package util

import (
	"math/rand/v2"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"100KB", 102400},
		{"1MB", 1048576},
		{"1.5GB", 1610612736},
		{"500MiB", 524288000},
		{"0.5KB", 512},
		{"0GB", 0},
	}
	for _, tc := range tests {
		got, err := ParseSize(tc.input)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
	for _, bad := range []string{"100", "1.5TB", "abc", "100 MB", "-100MB", ""} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) should fail", bad)
		}
	}
}

func TestFormatSize(t *testing.T) {
	if got := FormatSize(1536); got != "1.5 KiB" {
		t.Errorf("FormatSize(1536) = %q", got)
	}
}

func TestSeriesRange(t *testing.T) {
	r, err := ParseSeriesRange("2-4")
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsMultiSeries() || r.String() != "2-4" {
		t.Errorf("range = %+v", r)
	}
	rng := rand.New(rand.NewPCG(1, 1))
	for range 50 {
		if n := r.Count(rng); n < 2 || n > 4 {
			t.Fatalf("Count() = %d", n)
		}
	}
	one, _ := ParseSeriesRange("1")
	if one.IsMultiSeries() || one.Count(rng) != 1 {
		t.Errorf("single = %+v", one)
	}
	for _, bad := range []string{"0", "x", "3-1", "2-"} {
		if _, err := ParseSeriesRange(bad); err == nil {
			t.Errorf("ParseSeriesRange(%q) should fail", bad)
		}
	}
}
