package engine

import (
	"testing"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

func varosDataset() []geoquiz.Country {
	return []geoquiz.Country{{
		Name:      "Varos",
		Code:      "va",
		Continent: "Europe",
		Coords:    geoquiz.Coordinates{Lat: 10, Lon: 10},
		Stats: geoquiz.Stats{
			Population: "1,000,000",
			Area:       geoquiz.StatUnknown,
			GDP:        geoquiz.StatUnknown,
		},
		Tier: geoquiz.TierEasy,
		Cities: []geoquiz.City{{
			Name:       "Varoston",
			Coords:     geoquiz.Coordinates{Lat: 10, Lon: 10},
			Population: "1,000,000",
			Capital:    true,
		}},
	}}
}

func multiTierDataset() []geoquiz.Country {
	mk := func(name, code string, tier geoquiz.DifficultyTier) geoquiz.Country {
		return geoquiz.Country{
			Name:      name,
			Code:      code,
			Continent: "Testland",
			Stats: geoquiz.Stats{
				Population: "5,000,000",
				Area:       "100,000 km²",
				GDP:        "$50 Billion",
			},
			Tier: tier,
			Cities: []geoquiz.City{
				{Name: name + " City", Population: "1,000,000", Capital: true},
				{Name: name + " Town", Population: "200,000", Capital: false},
			},
		}
	}
	return []geoquiz.Country{
		mk("Alpha", "aa", geoquiz.TierEasy),
		mk("Bravo", "bb", geoquiz.TierMedium),
		mk("Chili", "cc", geoquiz.TierHard),
		mk("Delta", "dd", geoquiz.TierExtreme),
	}
}

func TestSelectRoundVarosExample(t *testing.T) {
	sel := NewSelector(varosDataset(), testRand(1))
	used := map[string]struct{}{}

	r := sel.SelectRound(geoquiz.TierEasy, used)
	if r == nil {
		t.Fatal("expected a round")
	}
	if r.CountryName != "Varos" || r.City.Name != "Varoston" {
		t.Fatalf("unexpected selection: %s / %s", r.CountryName, r.City.Name)
	}
	if _, ok := used["Varos:Varoston"]; !ok {
		t.Error("expected Varos:Varoston recorded in used set")
	}

	var pop *geoquiz.QuizItem
	for i := range r.CountryStats {
		if r.CountryStats[i].Key == "population" {
			pop = &r.CountryStats[i]
		}
	}
	if pop == nil {
		t.Fatal("expected a population quiz item")
	}
	if pop.Correct != "1,000,000" {
		t.Errorf("expected correct option 1,000,000, got %q", pop.Correct)
	}
	if len(pop.Options) != 4 {
		t.Errorf("expected 4 options, got %v", pop.Options)
	}
	// Area and GDP are unknown, so they must be omitted entirely.
	if len(r.CountryStats) != 1 {
		t.Errorf("expected only the population item, got %d items", len(r.CountryStats))
	}
}

func TestSelectRoundFlagOptions(t *testing.T) {
	// Single-country dataset: decoys must be padded from the fallback list.
	sel := NewSelector(varosDataset(), testRand(7))
	r := sel.SelectRound(geoquiz.TierEasy, map[string]struct{}{})

	if len(r.FlagOptions) != 4 {
		t.Fatalf("expected 4 flag options, got %d", len(r.FlagOptions))
	}
	correct := 0
	codes := map[string]struct{}{}
	for _, o := range r.FlagOptions {
		if o.Correct {
			correct++
			if o.Code != "va" {
				t.Errorf("correct option has wrong code %q", o.Code)
			}
		}
		if _, dup := codes[o.Code]; dup {
			t.Errorf("duplicate flag code %q", o.Code)
		}
		codes[o.Code] = struct{}{}
	}
	if correct != 1 {
		t.Errorf("expected exactly 1 correct flag, got %d", correct)
	}
}

func TestSelectRoundTierMatch(t *testing.T) {
	sel := NewSelector(multiTierDataset(), testRand(3))
	for _, tier := range []geoquiz.DifficultyTier{
		geoquiz.TierEasy, geoquiz.TierMedium, geoquiz.TierHard, geoquiz.TierExtreme,
	} {
		r := sel.SelectRound(tier, map[string]struct{}{})
		if r == nil {
			t.Fatalf("tier %s: expected a round", tier)
		}
		if r.Tier != tier {
			t.Errorf("tier %s: got round tier %s", tier, r.Tier)
		}
	}
}

func TestSelectRoundFallbackToMedium(t *testing.T) {
	// Only medium candidates exist: asking for easy must fall back to medium.
	countries := []geoquiz.Country{multiTierDataset()[1]} // Bravo, medium
	countries[0].Cities = countries[0].Cities[:1]         // capital only
	sel := NewSelector(countries, testRand(4))

	r := sel.SelectRound(geoquiz.TierEasy, map[string]struct{}{})
	if r == nil {
		t.Fatal("expected a round")
	}
	if r.Tier != geoquiz.TierMedium {
		t.Errorf("expected medium fallback, got %s", r.Tier)
	}
}

func TestSelectRoundFallbackToWholePool(t *testing.T) {
	// Neither the requested tier nor medium exist: any candidate is fine,
	// but a round must still come back.
	countries := []geoquiz.Country{multiTierDataset()[3]} // Delta, extreme
	countries[0].Cities = countries[0].Cities[:1]
	sel := NewSelector(countries, testRand(5))

	r := sel.SelectRound(geoquiz.TierEasy, map[string]struct{}{})
	if r == nil {
		t.Fatal("expected a round despite empty tier pools")
	}
	if r.CountryName != "Delta" {
		t.Errorf("unexpected country %s", r.CountryName)
	}
}

func TestSelectRoundExhaustedUsedSet(t *testing.T) {
	sel := NewSelector(varosDataset(), testRand(6))
	used := map[string]struct{}{"Varos:Varoston": {}}

	// The whole matching pool is used up: exclusion must be ignored.
	for i := 0; i < 5; i++ {
		r := sel.SelectRound(geoquiz.TierEasy, used)
		if r == nil {
			t.Fatalf("iteration %d: expected a round", i)
		}
	}
}

func TestSelectRoundEmptyDataset(t *testing.T) {
	sel := NewSelector(nil, testRand(8))
	if r := sel.SelectRound(geoquiz.TierEasy, map[string]struct{}{}); r != nil {
		t.Errorf("expected nil round for empty dataset, got %+v", r)
	}
}

func TestCandidatesDemoteNonCapitals(t *testing.T) {
	sel := NewSelector(multiTierDataset(), testRand(9))
	cands := sel.Candidates()
	if len(cands) != 8 {
		t.Fatalf("expected 8 candidates, got %d", len(cands))
	}
	for _, c := range cands {
		if c.City.Capital {
			if c.Tier != c.Country.Tier {
				t.Errorf("%s: capital should inherit tier %s, got %s", c.City.Name, c.Country.Tier, c.Tier)
			}
			continue
		}
		if c.Tier != c.Country.Tier.Harder() {
			t.Errorf("%s: non-capital should demote to %s, got %s", c.City.Name, c.Country.Tier.Harder(), c.Tier)
		}
		if c.SnapRadiusM >= snapRadiusM[c.Country.Tier] {
			t.Errorf("%s: non-capital snap radius should shrink", c.City.Name)
		}
	}
}

func TestTierHarderCapsAtExtreme(t *testing.T) {
	if got := geoquiz.TierExtreme.Harder(); got != geoquiz.TierExtreme {
		t.Errorf("extreme.Harder() = %s, want extreme", got)
	}
	if got := geoquiz.TierHard.Harder(); got != geoquiz.TierExtreme {
		t.Errorf("hard.Harder() = %s, want extreme", got)
	}
}
