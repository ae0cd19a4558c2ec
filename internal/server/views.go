package server

import (
	"github.com/terraplay/geoquiz/internal/engine"
	"github.com/terraplay/geoquiz/internal/geoquiz"
)

// Wire views strip everything the player isn't supposed to see yet: the
// country's identity while it's still being guessed, the city's coordinates
// until it's found, and the correct option of any pending question.

type FlagOptionView struct {
	Code string `json:"code"`
}

type QuizItemView struct {
	Key      string   `json:"key"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type QuizProgressView struct {
	Index   int           `json:"index"`
	Total   int           `json:"total"`
	Locked  bool          `json:"locked"`
	Done    bool          `json:"done"`
	Current *QuizItemView `json:"current,omitempty"`
}

type RoundCityView struct {
	Name        string               `json:"name"`
	Coords      *geoquiz.Coordinates `json:"coords,omitempty"`
	SnapRadiusM float64              `json:"snapRadiusM"`
	HintRadiusM float64              `json:"hintRadiusM"`
}

type RoundView struct {
	ID            string                 `json:"id"`
	CountryName   string                 `json:"countryName,omitempty"`
	CountryCode   string                 `json:"countryCode,omitempty"`
	Continent     string                 `json:"continent,omitempty"`
	CountryCoords *geoquiz.Coordinates   `json:"countryCoords,omitempty"`
	Tier          geoquiz.DifficultyTier `json:"tier"`
	FlagOptions   []FlagOptionView       `json:"flagOptions,omitempty"`
	City          RoundCityView          `json:"city"`

	HistoricalFact string   `json:"historicalFact,omitempty"`
	Person         *Person  `json:"person,omitempty"`
	History        string   `json:"history,omitempty"`
	ExtraFacts     []string `json:"extraFacts,omitempty"`
	HistoryPoints  []string `json:"historyPoints,omitempty"`
}

// Person mirrors geoquiz.Person for the wire.
type Person struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Bio  string `json:"bio"`
	Fact string `json:"fact"`
}

func phaseIndex(p geoquiz.Phase) int {
	for i, c := range geoquiz.CyclePhases {
		if c == p {
			return i
		}
	}
	return -1
}

// roundView redacts r for the given phase. countrySolved and cityFound widen
// what's visible within the guessing phases themselves.
func roundView(phase geoquiz.Phase, r *geoquiz.Round, countrySolved, cityFound bool) *RoundView {
	if r == nil {
		return nil
	}

	hideCountry := phase == geoquiz.PhaseCountryGuess && !countrySolved
	hideCityCoords := !cityFound && phaseIndex(phase) <= phaseIndex(geoquiz.PhaseCityFind)

	v := &RoundView{
		ID:   r.ID,
		Tier: r.Tier,
		City: RoundCityView{
			Name:        r.City.Name,
			SnapRadiusM: r.City.SnapRadiusM,
			HintRadiusM: r.City.HintRadiusM,
		},
	}

	if !hideCountry {
		v.CountryName = r.CountryName
		v.CountryCode = r.CountryCode
		v.Continent = r.Continent
		coords := r.CountryCoords
		v.CountryCoords = &coords
		// Flag option codes include the answer, so they stay hidden along
		// with the country.
		for _, fo := range r.FlagOptions {
			v.FlagOptions = append(v.FlagOptions, FlagOptionView{Code: fo.Code})
		}
	}
	if !hideCityCoords {
		coords := r.City.Coords
		v.City.Coords = &coords
	}

	v.HistoricalFact = r.HistoricalFact
	if r.Person.Name != "" {
		p := Person(r.Person)
		v.Person = &p
	}
	v.History = r.History
	v.ExtraFacts = r.ExtraFacts
	v.HistoryPoints = r.HistoryPoints

	return v
}

func quizView(p *engine.QuizProgress) *QuizProgressView {
	if p == nil {
		return nil
	}
	v := &QuizProgressView{
		Index:  p.Index,
		Total:  p.Total,
		Locked: p.Locked,
		Done:   p.Done,
	}
	if p.Current != nil {
		v.Current = &QuizItemView{
			Key:      p.Current.Key,
			Question: p.Current.Question,
			Options:  p.Current.Options,
		}
	}
	return v
}
