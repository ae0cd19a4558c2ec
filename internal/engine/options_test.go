package engine

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func testRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestGenerateOptionsPopulation(t *testing.T) {
	opts := GenerateOptions("1,000,000", false, testRand(1))
	if len(opts) != 4 {
		t.Fatalf("expected 4 options, got %d: %v", len(opts), opts)
	}

	seen := map[string]int{}
	for _, o := range opts {
		seen[o]++
	}
	if len(seen) != 4 {
		t.Errorf("options are not distinct: %v", opts)
	}
	if seen["1,000,000"] != 1 {
		t.Errorf("true value must appear exactly once, got %v", opts)
	}
	for _, o := range opts {
		if strings.ContainsAny(o, "$") {
			t.Errorf("population option should not be monetary: %q", o)
		}
	}
}

func TestGenerateOptionsKeepsUnitSuffix(t *testing.T) {
	opts := GenerateOptions("551,695 km²", false, testRand(2))
	if len(opts) != 4 {
		t.Fatalf("expected 4 options, got %v", opts)
	}
	for _, o := range opts {
		if !strings.HasSuffix(o, " km²") {
			t.Errorf("expected km² suffix on %q", o)
		}
	}
}

func TestGenerateOptionsNoData(t *testing.T) {
	for _, v := range []string{"Unknown", "unknown", "N/A", "", "0", "garbage-value", "no data"} {
		if opts := GenerateOptions(v, false, testRand(3)); opts != nil {
			t.Errorf("GenerateOptions(%q) = %v, want nil", v, opts)
		}
	}
}

var monetaryPattern = regexp.MustCompile(`^\$(\d+(\.\d)?) (Billion|Trillion)$`)

func TestGenerateOptionsTrillionBoundary(t *testing.T) {
	// Run across seeds: no decoy may ever render as e.g. "$2000.0 Billion".
	for seed := int64(0); seed < 50; seed++ {
		opts := GenerateOptions("$2.0 Trillion", true, testRand(seed))
		if len(opts) != 4 {
			t.Fatalf("seed %d: expected 4 options, got %v", seed, opts)
		}
		for _, o := range opts {
			m := monetaryPattern.FindStringSubmatch(o)
			if m == nil {
				t.Fatalf("seed %d: malformed monetary option %q", seed, o)
			}
			v, _ := strconv.ParseFloat(m[1], 64)
			if m[3] == "Billion" && v >= 1000 {
				t.Errorf("seed %d: option %q should have switched to Trillion", seed, o)
			}
		}
	}
}

func TestGenerateOptionsShuffled(t *testing.T) {
	// The true value's position must vary across seeds.
	positions := map[int]struct{}{}
	for seed := int64(0); seed < 30; seed++ {
		opts := GenerateOptions("5,000,000", false, testRand(seed))
		for i, o := range opts {
			if o == "5,000,000" {
				positions[i] = struct{}{}
			}
		}
	}
	if len(positions) < 2 {
		t.Errorf("true value always landed in the same slot: %v", positions)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in     string
		base   float64
		suffix string
		ok     bool
	}{
		{"1,000,000", 1e6, "", true},
		{"551,695 km²", 551695, "km²", true},
		{"$2.0 Trillion", 2e12, "", true},
		{"$50 Billion", 50e9, "", true},
		{"Unknown", 0, "", false},
		{"", 0, "", false},
		{"abc", 0, "", false},
	}
	for _, tt := range tests {
		base, suffix, ok := parseValue(tt.in)
		if ok != tt.ok || base != tt.base || suffix != tt.suffix {
			t.Errorf("parseValue(%q) = (%v, %q, %v), want (%v, %q, %v)",
				tt.in, base, suffix, ok, tt.base, tt.suffix, tt.ok)
		}
	}
}

func TestFormatMonetary(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2e12, "$2.0 Trillion"},
		{999e9, "$999.0 Billion"},
		{1000e9, "$1.0 Trillion"},
		{77.2e9, "$77.2 Billion"},
	}
	for _, tt := range tests {
		if got := formatMonetary(tt.in); got != tt.want {
			t.Errorf("formatMonetary(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := groupDigits(tt.in); got != tt.want {
			t.Errorf("groupDigits(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
