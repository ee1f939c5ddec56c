package search

import (
	"math"
	"strings"
	"testing"
)

func TestCalculateRelevance(t *testing.T) {
	long := strings.Repeat("x", 101)
	tests := []struct {
		name     string
		title    string
		snippet  string
		index    int
		academic bool
		want     float64
	}{
		{"first plain", "short", "short", 0, false, 1.0},
		{"third plain", "short", "short", 2, false, 0.8},
		{"third descriptive", "a fairly long result title", long, 2, false, 1.0},
		{"academic boost", "short", "short", 4, true, 0.8},
		{"floor", "", "", 15, false, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRelevance(tt.title, tt.snippet, tt.index, tt.academic)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculateRelevance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.iitkgp.ac.in/department/CS": "iitkgp.ac.in",
		"http://cdc.iitkgp.ac.in":                "cdc.iitkgp.ac.in",
		"#":                                      "unknown",
		"":                                       "unknown",
	}
	for in, want := range tests {
		if got := ExtractDomain(in); got != want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeLink(t *testing.T) {
	a := NormalizeLink("http://x.org/a")
	b := NormalizeLink("http://x.org/a?utm=1")
	c := NormalizeLink("HTTPS://X.org/a#top")
	if a != "x.org/a" || a != b || a != c {
		t.Fatalf("normalized links differ: %q %q %q", a, b, c)
	}
	if NormalizeLink("#") != "#" {
		t.Fatalf("fallback = %q", NormalizeLink("#"))
	}
	if NormalizeLink("http://x.org/a") == NormalizeLink("http://x.org/b") {
		t.Fatal("distinct paths collapsed")
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(" ", "No title") != "No title" || OrDefault("t", "No title") != "t" {
		t.Fatal("OrDefault")
	}
}
