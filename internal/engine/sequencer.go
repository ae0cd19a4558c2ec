package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/terraplay/geoquiz/internal/geoquiz"
)

// Presenter is the outbound surface toward the rendering layer. Calls happen
// under the sequencer lock and must not call back into the sequencer.
type Presenter interface {
	Render(phase geoquiz.Phase, round *geoquiz.Round)
	Highlight(regionID, style string)
	PlaceMarker(c geoquiz.Coordinates)
	FlyTo(c geoquiz.Coordinates, zoom int)
	Notify(message, severity string)
}

// Enricher supplies narrative content asynchronously.
type Enricher interface {
	Enrich(ctx context.Context, country, city string) (geoquiz.Enrichment, error)
	FollowUp(ctx context.Context, req geoquiz.FollowUpRequest) (geoquiz.FollowUpResult, error)
}

// UsedCityStore persists played city keys across sessions.
type UsedCityStore interface {
	AddUsedCity(ctx context.Context, key string) error
}

const (
	advanceDelay    = 1500 * time.Millisecond
	revealDelay     = 2500 * time.Millisecond
	showAnswerDelay = 3000 * time.Millisecond
	// loadingYield defers selection by one tick so the loading phase renders.
	loadingYield = 50 * time.Millisecond

	enrichTimeout   = 60 * time.Second
	followUpTimeout = 30 * time.Second

	countryZoom = 5
	hintZoom    = 6
)

// Sequencer is the game's state machine: one phase and at most one live
// round, driven entirely through its public entry points.
type Sequencer struct {
	logger    *slog.Logger
	selector  *Selector
	enricher  Enricher
	presenter Presenter
	store     UsedCityStore
	rng       *rand.Rand

	// schedule defers fn by d. Replaced in tests for determinism.
	schedule func(d time.Duration, fn func())

	mu         sync.Mutex
	phase      geoquiz.Phase
	round      *geoquiz.Round
	difficulty geoquiz.DifficultyTier
	used       map[string]struct{}

	// per-round tracking, reset on COUNTRY_GUESS entry
	wrongRegions   map[string]struct{}
	hintLevel      int
	countrySolved  bool
	pendingAdvance bool
	disabledFlags  map[int]struct{}
	flagSolved     bool
	cityFound      bool
	quiz           *quizRun
	followUpBusy   map[geoquiz.FollowUpKind]bool
}

// Config wires a Sequencer's collaborators.
type Config struct {
	Logger     *slog.Logger
	Selector   *Selector
	Enricher   Enricher
	Presenter  Presenter
	Store      UsedCityStore // optional
	Used       map[string]struct{}
	Difficulty geoquiz.DifficultyTier
	Rand       *rand.Rand
}

func NewSequencer(cfg Config) *Sequencer {
	used := cfg.Used
	if used == nil {
		used = make(map[string]struct{})
	}
	difficulty := cfg.Difficulty
	if !difficulty.Valid() {
		difficulty = geoquiz.TierMedium
	}
	return &Sequencer{
		logger:       cfg.Logger,
		selector:     cfg.Selector,
		enricher:     cfg.Enricher,
		presenter:    cfg.Presenter,
		store:        cfg.Store,
		rng:          cfg.Rand,
		schedule:     func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		phase:        geoquiz.PhaseIntro,
		difficulty:   difficulty,
		used:         used,
		followUpBusy: make(map[geoquiz.FollowUpKind]bool),
	}
}

// Start leaves INTRO and begins the first round. No-op once started.
func (s *Sequencer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != geoquiz.PhaseIntro {
		return
	}
	s.startRound()
}

// Phase returns the current phase.
func (s *Sequencer) Phase() geoquiz.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetDifficulty applies to the next round selection.
func (s *Sequencer) SetDifficulty(tier geoquiz.DifficultyTier) {
	if !tier.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.difficulty = tier
}

// State is a read-only snapshot for the presentation layer.
type State struct {
	Phase          geoquiz.Phase
	Round          *geoquiz.Round
	Difficulty     geoquiz.DifficultyTier
	HintLevel      int
	CountrySolved  bool
	CityFound      bool
	DisabledFlags  []int
	Quiz           *QuizProgress
	FollowUpBusy   map[geoquiz.FollowUpKind]bool
	PendingAdvance bool
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Phase:          s.phase,
		Difficulty:     s.difficulty,
		HintLevel:      s.hintLevel,
		CountrySolved:  s.countrySolved,
		CityFound:      s.cityFound,
		PendingAdvance: s.pendingAdvance,
		FollowUpBusy:   make(map[geoquiz.FollowUpKind]bool, len(s.followUpBusy)),
	}
	if s.round != nil {
		r := *s.round
		st.Round = &r
	}
	for idx := range s.disabledFlags {
		st.DisabledFlags = append(st.DisabledFlags, idx)
	}
	sort.Ints(st.DisabledFlags)
	if s.quiz != nil {
		st.Quiz = s.quiz.progress()
	}
	for k, v := range s.followUpBusy {
		st.FollowUpBusy[k] = v
	}
	return st
}

// ResetUsed clears the in-memory used set. The current round keeps playing;
// the next selection draws from the full pool again.
func (s *Sequencer) ResetUsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = make(map[string]struct{})
}

// Advance moves to the next cyclic phase; from HISTORY it restarts with a
// fresh round instead.
func (s *Sequencer) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
}

func (s *Sequencer) advance() {
	switch s.phase {
	case geoquiz.PhaseIntro, geoquiz.PhaseLoading:
		return
	case geoquiz.PhaseHistory:
		s.startRound()
		return
	}
	s.enterPhase(nextPhase(s.phase))
}

func nextPhase(p geoquiz.Phase) geoquiz.Phase {
	for i, c := range geoquiz.CyclePhases {
		if c == p {
			return geoquiz.CyclePhases[(i+1)%len(geoquiz.CyclePhases)]
		}
	}
	return geoquiz.CyclePhases[0]
}

// startRound enters LOADING, then defers selection by one tick so the
// loading indicator gets to render first.
func (s *Sequencer) startRound() {
	s.phase = geoquiz.PhaseLoading
	s.round = nil
	s.quiz = nil
	s.render()

	s.schedule(loadingYield, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.phase != geoquiz.PhaseLoading {
			return
		}

		r := s.selector.SelectRound(s.difficulty, s.used)
		if r == nil {
			s.presenter.Notify("No countries available. Check the dataset.", "critical")
			return
		}
		s.round = r

		key := geoquiz.UsedCityKey(r.CountryName, r.City.Name)
		if s.store != nil {
			if err := s.store.AddUsedCity(context.Background(), key); err != nil {
				s.logger.Error("persisting used city", "key", key, "error", err)
			}
		}

		s.enterPhase(geoquiz.PhaseCountryGuess)
		go s.runEnrichment(r.ID, r.CountryName, r.City.Name)
	})
}

func (s *Sequencer) enterPhase(p geoquiz.Phase) {
	s.phase = p
	s.pendingAdvance = false
	// Quiz state belongs to a stats phase only; never let a finished quiz
	// linger in later snapshots.
	s.quiz = nil

	switch p {
	case geoquiz.PhaseCountryGuess:
		s.wrongRegions = make(map[string]struct{})
		s.hintLevel = 0
		s.countrySolved = false
		s.disabledFlags = make(map[int]struct{})
		s.flagSolved = false
		s.cityFound = false
	case geoquiz.PhaseStatsCountry:
		if len(s.round.CountryStats) == 0 {
			s.advance()
			return
		}
		s.quiz = newQuizRun(s.round.CountryStats)
	case geoquiz.PhaseStatsCity:
		if len(s.round.City.Stats) == 0 {
			s.advance()
			return
		}
		s.quiz = newQuizRun(s.round.City.Stats)
	case geoquiz.PhaseCityFind:
		s.presenter.FlyTo(s.round.CountryCoords, countryZoom)
	}

	s.render()
}

func (s *Sequencer) render() {
	s.presenter.Render(s.phase, s.round)
}

// scheduleAdvance auto-advances after d, unless the round or phase moved on
// in the meantime.
func (s *Sequencer) scheduleAdvance(d time.Duration) {
	s.pendingAdvance = true
	roundID := s.round.ID
	phase := s.phase
	s.schedule(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.round == nil || s.round.ID != roundID || s.phase != phase {
			return
		}
		s.advance()
	})
}

// SubmitLocationGuess evaluates a clicked region identifier against the
// target country. Matching is deliberately fuzzy: code equality, substring
// containment in either direction, or an edit distance of one, to absorb
// naming mismatches between map data and the catalog.
func (s *Sequencer) SubmitLocationGuess(region string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != geoquiz.PhaseCountryGuess || s.round == nil || s.countrySolved {
		return false
	}

	if s.matchesCountry(region) {
		s.countrySolved = true
		s.presenter.Highlight(s.round.CountryCode, "correct")
		s.presenter.Notify(fmt.Sprintf("Correct! That's %s.", s.round.CountryName), "success")
		s.scheduleAdvance(advanceDelay)
		return true
	}

	key := normalizeName(region)
	if _, seen := s.wrongRegions[key]; !seen {
		s.wrongRegions[key] = struct{}{}
		s.presenter.Highlight(region, "wrong")
		s.presenter.Notify("Not this one. Keep looking!", "warning")
	}
	return false
}

func (s *Sequencer) matchesCountry(region string) bool {
	clicked := normalizeName(region)
	if clicked == "" {
		return false
	}
	if clicked == s.round.CountryCode {
		return true
	}
	target := normalizeName(s.round.CountryName)
	if strings.Contains(clicked, target) || strings.Contains(target, clicked) {
		return true
	}
	if len(clicked) >= 4 && levenshtein.ComputeDistance(clicked, target) <= 1 {
		return true
	}
	return false
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RequestHint grants up to two hint levels during COUNTRY_GUESS: the
// continent first, then a highlighted neighborhood of candidate regions that
// always contains the target. During CITY_FIND it pans near the city.
func (s *Sequencer) RequestHint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return
	}

	switch s.phase {
	case geoquiz.PhaseCountryGuess:
		switch s.hintLevel {
		case 0:
			s.hintLevel = 1
			s.presenter.Notify(fmt.Sprintf("Hint: the country is in %s.", s.round.Continent), "info")
		case 1:
			s.hintLevel = 2
			for _, code := range s.hintRegions() {
				s.presenter.Highlight(code, "hint")
			}
			s.presenter.Notify("Hint: it's one of the highlighted regions.", "info")
		default:
			s.presenter.Notify("No more hints for this one.", "info")
		}
	case geoquiz.PhaseCityFind:
		center := s.jitteredCityCenter()
		s.presenter.FlyTo(center, hintZoom)
		s.presenter.Notify("Hint: the city is somewhere around here.", "info")
	}
}

// hintRegions builds the level-2 candidate set: the target plus decoys
// skewed toward its actual location, drawn around a randomized center so the
// answer can't be deduced from the set's geometry alone.
func (s *Sequencer) hintRegions() []string {
	target := s.round.CountryCoords
	center := geoquiz.Coordinates{
		Lat: target.Lat + (s.rng.Float64()-0.5)*10,
		Lon: target.Lon + (s.rng.Float64()-0.5)*10,
	}

	type scored struct {
		code string
		dist float64
	}
	var pool []scored
	for i := range s.selector.countries {
		c := &s.selector.countries[i]
		if c.Code == s.round.CountryCode {
			continue
		}
		// Random jitter keeps the decoy set from being the strict
		// nearest-neighbor ring every time.
		d := HaversineM(center, c.Coords) * (0.7 + s.rng.Float64()*0.6)
		pool = append(pool, scored{code: c.Code, dist: d})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].dist < pool[j].dist })

	count := 4 + s.rng.Intn(4) // 5–8 regions including the target
	if count > len(pool) {
		count = len(pool)
	}
	regions := []string{s.round.CountryCode}
	for _, p := range pool[:count] {
		regions = append(regions, p.code)
	}
	s.rng.Shuffle(len(regions), func(i, j int) {
		regions[i], regions[j] = regions[j], regions[i]
	})
	return regions
}

// jitteredCityCenter offsets the true city by a fraction of the hint radius,
// so the hint area contains — but is not centered on — the answer.
func (s *Sequencer) jitteredCityCenter() geoquiz.Coordinates {
	r := s.round.City.HintRadiusM * 0.3 * s.rng.Float64()
	theta := s.rng.Float64() * 2 * math.Pi
	dLat := (r * math.Cos(theta)) / 111195
	lonScale := math.Cos(s.round.City.Coords.Lat * math.Pi / 180)
	if math.Abs(lonScale) < 0.01 {
		lonScale = 0.01
	}
	dLon := (r * math.Sin(theta)) / (111195 * lonScale)
	return geoquiz.Coordinates{
		Lat: s.round.City.Coords.Lat + dLat,
		Lon: s.round.City.Coords.Lon + dLon,
	}
}

// RequestShowAnswer is the escape hatch: reveal and move on.
func (s *Sequencer) RequestShowAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil {
		return
	}

	switch s.phase {
	case geoquiz.PhaseCountryGuess:
		if s.countrySolved {
			return
		}
		s.countrySolved = true
		s.presenter.Highlight(s.round.CountryCode, "answer")
		s.presenter.Notify(fmt.Sprintf("It was %s.", s.round.CountryName), "info")
		s.scheduleAdvance(showAnswerDelay)
	case geoquiz.PhaseCityFind:
		if s.cityFound {
			return
		}
		s.cityFound = true
		s.presenter.PlaceMarker(s.round.City.Coords)
		s.presenter.FlyTo(s.round.City.Coords, hintZoom)
		s.presenter.Notify(fmt.Sprintf("%s is here.", s.round.City.Name), "info")
		s.scheduleAdvance(showAnswerDelay)
	default:
		s.advance()
	}
}

// SubmitFlagChoice evaluates a flag pick. A wrong option is disabled for the
// rest of the phase; a correct one locks input and auto-advances.
func (s *Sequencer) SubmitFlagChoice(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != geoquiz.PhaseFlagGuess || s.round == nil || s.flagSolved {
		return false
	}
	if idx < 0 || idx >= len(s.round.FlagOptions) {
		return false
	}
	if _, disabled := s.disabledFlags[idx]; disabled {
		return false
	}

	if s.round.FlagOptions[idx].Correct {
		s.flagSolved = true
		s.presenter.Notify("That's the flag!", "success")
		s.scheduleAdvance(advanceDelay)
		return true
	}

	s.disabledFlags[idx] = struct{}{}
	s.presenter.Notify("Wrong flag.", "warning")
	return false
}

// SubmitMapClick evaluates a CITY_FIND click. Success is strict: the click
// distance must be under the round's snap radius. Misses report the distance
// in whole kilometers and never limit further attempts.
func (s *Sequencer) SubmitMapClick(c geoquiz.Coordinates) (hit bool, missKm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != geoquiz.PhaseCityFind || s.round == nil || s.cityFound {
		return false, 0
	}

	d := HaversineM(c, s.round.City.Coords)
	if withinSnap(d, s.round.City.SnapRadiusM) {
		s.cityFound = true
		s.presenter.PlaceMarker(s.round.City.Coords)
		s.presenter.Notify(fmt.Sprintf("You found %s!", s.round.City.Name), "success")
		s.scheduleAdvance(advanceDelay)
		return true, 0
	}

	missKm = int(math.Round(d / 1000))
	s.presenter.Notify(fmt.Sprintf("%d km off. Try again.", missKm), "warning")
	return false, missKm
}

// SubmitQuizAnswer drives the stats quiz. All options lock on selection; a
// wrong pick reveals the correct one; the next item follows after a delay
// long enough to read the reveal.
func (s *Sequencer) SubmitQuizAnswer(value string) (correct bool, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != geoquiz.PhaseStatsCountry && s.phase != geoquiz.PhaseStatsCity {
		return false, false
	}
	if s.quiz == nil || s.quiz.locked || s.quiz.done {
		return false, false
	}
	item := s.quiz.current()
	if item == nil {
		return false, false
	}

	s.quiz.locked = true
	correct = value == item.Correct
	if correct {
		s.presenter.Notify("Correct!", "success")
	} else {
		s.presenter.Notify(fmt.Sprintf("The correct answer was %s.", item.Correct), "warning")
	}

	roundID := s.round.ID
	phase := s.phase
	s.schedule(revealDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.round == nil || s.round.ID != roundID || s.phase != phase || s.quiz == nil {
			return
		}
		s.quiz.next()
		s.render()
	})
	return correct, true
}

// runEnrichment fills the narrative fields in the background. A result for a
// round that is no longer live is discarded, not cached.
func (s *Sequencer) runEnrichment(roundID, country, city string) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	enr, err := s.enricher.Enrich(ctx, country, city)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil || s.round.ID != roundID {
		s.logger.Debug("discarding stale enrichment", "round", roundID)
		return
	}

	if err != nil {
		s.logger.Error("enrichment failed", "country", country, "error", err)
		enr = geoquiz.Enrichment{
			HistoricalFact: geoquiz.NarrativeUnavailable,
			Person:         geoquiz.Person{Name: geoquiz.NarrativeUnavailable},
			History:        geoquiz.NarrativeUnavailable,
		}
	}

	// Each narrative field is written at most once here. A follow-up swap
	// that landed first wins; this merge must not claw it back.
	if s.round.HistoricalFact == geoquiz.NarrativeLoading {
		s.round.HistoricalFact = enr.HistoricalFact
	}
	if s.round.Person.Name == geoquiz.NarrativeLoading {
		s.round.Person = enr.Person
	}
	if s.round.History == geoquiz.NarrativeLoading {
		s.round.History = enr.History
	}

	// Re-render only if the player is looking at narrative content; the
	// merge itself applies regardless.
	switch s.phase {
	case geoquiz.PhaseHistoricalFact, geoquiz.PhasePersonGuess, geoquiz.PhaseHistory:
		s.render()
	}
}

// RequestMoreInfo fetches three extra facts, appended to the round.
func (s *Sequencer) RequestMoreInfo() {
	s.followUp(geoquiz.FollowUpMoreInfo, geoquiz.PhaseHistoricalFact, geoquiz.PhasePersonGuess)
}

// RequestOtherPerson swaps the person record and re-enters the phase fresh.
func (s *Sequencer) RequestOtherPerson() {
	s.followUp(geoquiz.FollowUpOtherPerson, geoquiz.PhasePersonGuess)
}

// RequestHistoryDeepDive fetches five deep-dive history points.
func (s *Sequencer) RequestHistoryDeepDive() {
	s.followUp(geoquiz.FollowUpHistoryDeepDive, geoquiz.PhaseHistory)
}

func (s *Sequencer) followUp(kind geoquiz.FollowUpKind, allowed ...geoquiz.Phase) {
	s.mu.Lock()
	if s.round == nil || !phaseIn(s.phase, allowed) || s.followUpBusy[kind] {
		s.mu.Unlock()
		return
	}
	s.followUpBusy[kind] = true
	roundID := s.round.ID
	req := geoquiz.FollowUpRequest{
		Kind:       kind,
		Country:    s.round.CountryName,
		City:       s.round.City.Name,
		PersonName: s.round.Person.Name,
	}
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), followUpTimeout)
		defer cancel()
		res, err := s.enricher.FollowUp(ctx, req)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.followUpBusy[kind] = false
		if s.round == nil || s.round.ID != roundID {
			return
		}
		if err != nil {
			s.logger.Error("follow-up failed", "kind", kind, "error", err)
			s.presenter.Notify("Couldn't fetch more right now. Try again.", "warning")
			return
		}

		switch kind {
		case geoquiz.FollowUpMoreInfo:
			s.round.ExtraFacts = append(s.round.ExtraFacts, res.Facts...)
		case geoquiz.FollowUpOtherPerson:
			s.round.Person = res.Person
			s.round.ExtraFacts = nil
		case geoquiz.FollowUpHistoryDeepDive:
			s.round.HistoryPoints = res.HistoryPoints
		}
		s.render()
	}()
}

func phaseIn(p geoquiz.Phase, allowed []geoquiz.Phase) bool {
	for _, a := range allowed {
		if p == a {
			return true
		}
	}
	return false
}
