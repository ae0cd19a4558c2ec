package engine

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

// Per-tier click tolerance and hint-circle radii, in meters. Harder tiers get
// a tighter snap and a smaller hint circle. Non-capital cities are less
// prominent on a map, so their snap shrinks and their hint circle grows.
var (
	snapRadiusM = map[geoquiz.DifficultyTier]float64{
		geoquiz.TierEasy:    50000,
		geoquiz.TierMedium:  35000,
		geoquiz.TierHard:    25000,
		geoquiz.TierExtreme: 15000,
	}
	hintRadiusM = map[geoquiz.DifficultyTier]float64{
		geoquiz.TierEasy:    500000,
		geoquiz.TierMedium:  400000,
		geoquiz.TierHard:    300000,
		geoquiz.TierExtreme: 200000,
	}
)

// fallbackCodes pads flag decoys when the dataset itself has fewer than
// four countries.
var fallbackCodes = []string{"fr", "de", "jp", "br", "au", "ca", "in", "za"}

// Selector picks rounds from the country catalog.
type Selector struct {
	countries []geoquiz.Country
	rng       *rand.Rand
}

func NewSelector(countries []geoquiz.Country, rng *rand.Rand) *Selector {
	return &Selector{countries: countries, rng: rng}
}

// Candidates flattens every (country, city) pair, deriving the effective
// difficulty and radii. Capitals inherit the country tier; other cities are
// demoted one tier harder.
func (s *Selector) Candidates() []geoquiz.CityCandidate {
	var out []geoquiz.CityCandidate
	for i := range s.countries {
		country := &s.countries[i]
		for j := range country.Cities {
			city := &country.Cities[j]
			tier := country.Tier
			snap := snapRadiusM[country.Tier]
			hint := hintRadiusM[country.Tier]
			if !city.Capital {
				tier = tier.Harder()
				snap *= 0.8
				hint *= 1.5
			}
			out = append(out, geoquiz.CityCandidate{
				Country:     country,
				City:        city,
				Tier:        tier,
				HintRadiusM: hint,
				SnapRadiusM: snap,
			})
		}
	}
	return out
}

// SelectRound picks one candidate for the requested tier and builds the full
// round record. The chosen key is added to used immediately — a round picked
// but abandoned still counts. Returns nil only when the dataset is empty.
//
// Fallback chain: requested tier → medium → whole pool; then exclusion by
// used keys, ignored for this selection when it would empty the pool.
func (s *Selector) SelectRound(tier geoquiz.DifficultyTier, used map[string]struct{}) *geoquiz.Round {
	all := s.Candidates()
	if len(all) == 0 {
		return nil
	}

	pool := filterTier(all, tier)
	if len(pool) == 0 {
		pool = filterTier(all, geoquiz.TierMedium)
	}
	if len(pool) == 0 {
		pool = all
	}

	fresh := pool[:0:0]
	for _, c := range pool {
		if _, played := used[c.Key()]; !played {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		fresh = pool
	}

	c := fresh[s.rng.Intn(len(fresh))]
	used[c.Key()] = struct{}{}

	return s.buildRound(c)
}

func filterTier(cands []geoquiz.CityCandidate, tier geoquiz.DifficultyTier) []geoquiz.CityCandidate {
	var out []geoquiz.CityCandidate
	for _, c := range cands {
		if c.Tier == tier {
			out = append(out, c)
		}
	}
	return out
}

func (s *Selector) buildRound(c geoquiz.CityCandidate) *geoquiz.Round {
	country := c.Country
	return &geoquiz.Round{
		ID:            uuid.NewString(),
		CountryName:   country.Name,
		CountryCode:   country.Code,
		Continent:     country.Continent,
		CountryCoords: country.Coords,
		Tier:          c.Tier,
		FlagOptions:   s.flagOptions(country.Code),
		CountryStats:  s.countryQuiz(country),
		City: geoquiz.RoundCity{
			Name:        c.City.Name,
			Coords:      c.City.Coords,
			Stats:       s.cityQuiz(c.City),
			HintRadiusM: c.HintRadiusM,
			SnapRadiusM: c.SnapRadiusM,
		},
		HistoricalFact: geoquiz.NarrativeLoading,
		Person:         geoquiz.Person{Name: geoquiz.NarrativeLoading},
		History:        geoquiz.NarrativeLoading,
	}
}

// flagOptions returns four flag choices: the correct code plus three distinct
// decoy codes, order-randomized. Decoys come from the dataset, padded from a
// static list when the catalog is too small.
func (s *Selector) flagOptions(correct string) []geoquiz.FlagOption {
	seen := map[string]struct{}{correct: {}}
	var decoyPool []string
	for i := range s.countries {
		code := s.countries[i].Code
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		decoyPool = append(decoyPool, code)
	}
	for _, code := range fallbackCodes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		decoyPool = append(decoyPool, code)
	}

	s.rng.Shuffle(len(decoyPool), func(i, j int) {
		decoyPool[i], decoyPool[j] = decoyPool[j], decoyPool[i]
	})

	options := []geoquiz.FlagOption{{Code: correct, Correct: true}}
	for _, code := range decoyPool {
		if len(options) == 4 {
			break
		}
		options = append(options, geoquiz.FlagOption{Code: code})
	}
	s.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// countryQuiz builds the stats quiz in fixed order: population, area, gdp.
// Items whose source value has no data are omitted entirely.
func (s *Selector) countryQuiz(country *geoquiz.Country) []geoquiz.QuizItem {
	var items []geoquiz.QuizItem
	add := func(key, question, value string, monetary bool) {
		opts := GenerateOptions(value, monetary, s.rng)
		if opts == nil {
			return
		}
		items = append(items, geoquiz.QuizItem{
			Key:      key,
			Question: question,
			Correct:  value,
			Options:  opts,
		})
	}
	add("population", fmt.Sprintf("What is the population of %s?", country.Name), country.Stats.Population, false)
	add("area", fmt.Sprintf("How large is %s?", country.Name), country.Stats.Area, false)
	add("gdp", fmt.Sprintf("What is the GDP of %s?", country.Name), country.Stats.GDP, true)
	return items
}

func (s *Selector) cityQuiz(city *geoquiz.City) []geoquiz.QuizItem {
	opts := GenerateOptions(city.Population, false, s.rng)
	if opts == nil {
		return nil
	}
	return []geoquiz.QuizItem{{
		Key:      "population",
		Question: fmt.Sprintf("What is the population of %s?", city.Name),
		Correct:  city.Population,
		Options:  opts,
	}}
}
