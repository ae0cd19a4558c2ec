// Package geoquiz defines the core domain types for the geography quiz.
// It has zero external dependencies — everything here is pure Go.
package geoquiz

// DifficultyTier ranks how obscure a country is to the average player.
type DifficultyTier string

const (
	TierEasy    DifficultyTier = "easy"
	TierMedium  DifficultyTier = "medium"
	TierHard    DifficultyTier = "hard"
	TierExtreme DifficultyTier = "extreme"
)

// Valid reports whether t is one of the four known tiers.
func (t DifficultyTier) Valid() bool {
	switch t {
	case TierEasy, TierMedium, TierHard, TierExtreme:
		return true
	}
	return false
}

// Harder returns the next tier down, capped at extreme. Non-capital cities
// are demoted one tier with this.
func (t DifficultyTier) Harder() DifficultyTier {
	switch t {
	case TierEasy:
		return TierMedium
	case TierMedium:
		return TierHard
	default:
		return TierExtreme
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StatUnknown is the sentinel carried by the dataset when a stat has no data.
const StatUnknown = "Unknown"

// Stats holds pre-formatted display strings, or StatUnknown.
type Stats struct {
	Population string `json:"population"`
	Area       string `json:"area"`
	GDP        string `json:"gdp"`
}

type City struct {
	Name       string      `json:"name"`
	Coords     Coordinates `json:"coords"`
	Population string      `json:"population"`
	Capital    bool        `json:"capital"`
}

// Country is immutable reference data, loaded once at startup.
type Country struct {
	Name      string         `json:"name"`
	Code      string         `json:"code"` // two-letter, lowercase
	Continent string         `json:"continent"`
	Coords    Coordinates    `json:"coords"`
	Stats     Stats          `json:"stats"`
	Cities    []City         `json:"cities"`
	Tier      DifficultyTier `json:"tier"`
}

// UsedCityKey identifies a played (country, city) pair in the used set.
func UsedCityKey(country, city string) string {
	return country + ":" + city
}

// CityCandidate pairs a city with its owning country plus the per-round
// derivations. Built fresh per selection request, never persisted.
type CityCandidate struct {
	Country     *Country
	City        *City
	Tier        DifficultyTier // capital inherits, non-capital demoted one step
	HintRadiusM float64
	SnapRadiusM float64
}

func (c CityCandidate) Key() string {
	return UsedCityKey(c.Country.Name, c.City.Name)
}

type FlagOption struct {
	Code    string `json:"code"`
	Correct bool   `json:"correct"`
}

// QuizItem is one multiple-choice question. The correct value appears in
// Options exactly once; all options are distinct.
type QuizItem struct {
	Key      string   `json:"key"` // population, area, gdp
	Question string   `json:"question"`
	Correct  string   `json:"correct"`
	Options  []string `json:"options"`
}

type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Bio  string `json:"bio"`
	Fact string `json:"fact"`
}

// Narrative placeholders. Loading is set at round creation and always
// overwritten once enrichment resolves, with Unavailable on failure.
const (
	NarrativeLoading     = "Loading..."
	NarrativeUnavailable = "Not available right now."
)

// RoundCity is the city sub-record of a live round.
type RoundCity struct {
	Name        string      `json:"name"`
	Coords      Coordinates `json:"coords"`
	Stats       []QuizItem  `json:"stats"`
	HintRadiusM float64     `json:"hintRadiusM"`
	SnapRadiusM float64     `json:"snapRadiusM"`
}

// Round is the live game-state aggregate. Exactly one is live at a time.
// The selector writes it once at creation; the enrichment merge and the
// person swap overwrite their narrow fields later.
type Round struct {
	ID            string         `json:"id"`
	CountryName   string         `json:"countryName"`
	CountryCode   string         `json:"countryCode"`
	Continent     string         `json:"continent"`
	CountryCoords Coordinates    `json:"countryCoords"`
	Tier          DifficultyTier `json:"tier"`
	FlagOptions   []FlagOption   `json:"flagOptions"`
	CountryStats  []QuizItem     `json:"countryStats"`
	City          RoundCity      `json:"city"`

	HistoricalFact string   `json:"historicalFact"`
	Person         Person   `json:"person"`
	History        string   `json:"history"`
	ExtraFacts     []string `json:"extraFacts,omitempty"`
	HistoryPoints  []string `json:"historyPoints,omitempty"`
}

// Phase is the single process-wide gameplay step.
type Phase string

const (
	PhaseIntro          Phase = "intro"
	PhaseLoading        Phase = "loading"
	PhaseCountryGuess   Phase = "country_guess"
	PhaseFlagGuess      Phase = "flag_guess"
	PhaseStatsCountry   Phase = "stats_country"
	PhaseCityFind       Phase = "city_find"
	PhaseStatsCity      Phase = "stats_city"
	PhaseHistoricalFact Phase = "historical_fact"
	PhasePersonGuess    Phase = "person_guess"
	PhaseHistory        Phase = "history"
)

// CyclePhases is the fixed forward order of the eight in-round phases.
// INTRO and LOADING sit outside the cycle.
var CyclePhases = []Phase{
	PhaseCountryGuess,
	PhaseFlagGuess,
	PhaseStatsCountry,
	PhaseCityFind,
	PhaseStatsCity,
	PhaseHistoricalFact,
	PhasePersonGuess,
	PhaseHistory,
}

// Enrichment is the narrative payload produced once per round.
type Enrichment struct {
	HistoricalFact string `json:"historical_fact"`
	Person         Person `json:"person"`
	History        string `json:"history"`
}

type FollowUpKind string

const (
	FollowUpMoreInfo        FollowUpKind = "more_info"
	FollowUpOtherPerson     FollowUpKind = "other_person"
	FollowUpHistoryDeepDive FollowUpKind = "history_deep_dive"
)

// FollowUpRequest is keyed on the current round's subject.
type FollowUpRequest struct {
	Kind       FollowUpKind
	Country    string
	City       string
	PersonName string // excluded when asking for another person
}

// FollowUpResult carries exactly one kind-specific payload.
type FollowUpResult struct {
	Facts         []string // MORE_INFO: 3 extra facts
	Person        Person   // OTHER_PERSON: replacement record
	HistoryPoints []string // HISTORY_DEEP_DIVE: 5 points
}
