// Package dataset loads the country catalog the game draws rounds from.
// The catalog is immutable reference data: a failure to load it is fatal,
// with no automatic retry.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

var ErrEmpty = errors.New("dataset contains no countries")

// Load reads the catalog from a local file path or an http(s) URL.
func Load(path string) ([]geoquiz.Country, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Get(path)
		if err != nil {
			return nil, fmt.Errorf("fetching dataset: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching dataset: status %d", resp.StatusCode)
		}
		return Parse(resp.Body)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) ([]geoquiz.Country, error) {
	var countries []geoquiz.Country
	if err := json.NewDecoder(r).Decode(&countries); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if len(countries) == 0 {
		return nil, ErrEmpty
	}

	for i := range countries {
		c := &countries[i]
		if c.Name == "" {
			return nil, fmt.Errorf("country %d: missing name", i)
		}
		if len(c.Code) != 2 {
			return nil, fmt.Errorf("country %q: code must be two letters", c.Name)
		}
		c.Code = strings.ToLower(c.Code)
		if len(c.Cities) == 0 {
			return nil, fmt.Errorf("country %q: has no cities", c.Name)
		}
		if !c.Tier.Valid() {
			c.Tier = deriveTier(c.Stats)
		}
		if c.Stats.Population == "" {
			c.Stats.Population = geoquiz.StatUnknown
		}
		if c.Stats.Area == "" {
			c.Stats.Area = geoquiz.StatUnknown
		}
		if c.Stats.GDP == "" {
			c.Stats.GDP = geoquiz.StatUnknown
		}
		for j := range c.Cities {
			if c.Cities[j].Population == "" {
				c.Cities[j].Population = geoquiz.StatUnknown
			}
		}
	}
	return countries, nil
}

// deriveTier assigns a difficulty for documents without a precomputed one,
// using population and GDP thresholds: the bigger the country's footprint,
// the more likely the average player is to recognise it.
func deriveTier(s geoquiz.Stats) geoquiz.DifficultyTier {
	pop := roughNumber(s.Population)
	gdp := roughNumber(s.GDP)

	switch {
	case gdp >= 1e12 || pop >= 80e6:
		return geoquiz.TierEasy
	case gdp >= 50e9 || pop >= 3e6:
		return geoquiz.TierMedium
	case gdp >= 2e9 || pop >= 500e3:
		return geoquiz.TierHard
	default:
		return geoquiz.TierExtreme
	}
}

// roughNumber parses a formatted stat string leniently; 0 on no data.
func roughNumber(s string) float64 {
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" || strings.EqualFold(s, geoquiz.StatUnknown) {
		return 0
	}
	mult := 1.0
	lower := strings.ToLower(s)
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
			s = strings.TrimSpace(s[:i])
			break
		}
	}
	var num strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' {
			num.WriteRune(r)
		} else if r != ',' {
			break
		}
	}
	v, err := strconv.ParseFloat(num.String(), 64)
	if err != nil {
		return 0
	}
	return v * mult
}
