package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// noData values are treated as "omit the quiz item entirely".
var noData = map[string]struct{}{
	"":        {},
	"unknown": {},
	"n/a":     {},
	"no data": {},
	"-":       {},
}

const (
	decoyCount  = 3
	maxAttempts = 100
)

// GenerateOptions builds a shuffled multiple-choice option set around a
// formatted true value. It returns nil when the value is a no-data sentinel,
// unparseable, or zero — the caller must omit the quiz item in that case.
// Decoys are perturbed by a factor uniform in [0.6, 1.4) and re-formatted in
// the true value's style; after 100 attempts fewer than 3 decoys is accepted.
func GenerateOptions(trueValue string, monetary bool, rng *rand.Rand) []string {
	base, suffix, ok := parseValue(trueValue)
	if !ok || base == 0 {
		return nil
	}

	format := func(v float64) string {
		if monetary {
			return formatMonetary(v)
		}
		return formatGrouped(v, suffix)
	}
	zero := format(0)

	seen := map[string]struct{}{
		trueValue:    {},
		format(base): {},
	}
	var decoys []string
	for attempts := 0; attempts < maxAttempts && len(decoys) < decoyCount; attempts++ {
		factor := 0.6 + rng.Float64()*0.8
		d := format(base * factor)
		if d == zero {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		decoys = append(decoys, d)
	}

	options := append([]string{trueValue}, decoys...)
	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// parseValue strips formatting from a stat string: currency symbol, thousands
// separators, magnitude words, and a trailing unit suffix (returned so decoys
// can be formatted to match).
func parseValue(s string) (base float64, suffix string, ok bool) {
	raw := strings.TrimSpace(s)
	if _, bad := noData[strings.ToLower(raw)]; bad {
		return 0, "", false
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "$"))

	mult := 1.0
	lower := strings.ToLower(raw)
	for _, m := range []struct {
		word string
		mult float64
	}{
		{"trillion", 1e12},
		{"billion", 1e9},
		{"million", 1e6},
	} {
		if i := strings.Index(lower, m.word); i >= 0 {
			mult = m.mult
			raw = strings.TrimSpace(raw[:i] + raw[i+len(m.word):])
			break
		}
	}

	num := raw
	for i, r := range raw {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			num = raw[:i]
			suffix = strings.TrimSpace(raw[i:])
			break
		}
	}
	num = strings.ReplaceAll(num, ",", "")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", false
	}
	return v * mult, suffix, true
}

// formatMonetary renders a raw dollar amount as $X.Y Billion or $X.Y
// Trillion, switching at 1000 Billion.
func formatMonetary(v float64) string {
	billions := v / 1e9
	if billions >= 1000 {
		return fmt.Sprintf("$%.1f Trillion", billions/1000)
	}
	return fmt.Sprintf("$%.1f Billion", billions)
}

// formatGrouped renders a comma-grouped integer with the original unit suffix.
func formatGrouped(v float64, suffix string) string {
	s := groupDigits(int64(math.Round(v)))
	if suffix != "" {
		s += " " + suffix
	}
	return s
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
