package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terraplay/geoquiz/internal/database"
	"github.com/terraplay/geoquiz/internal/engine"
	"github.com/terraplay/geoquiz/internal/geoquiz"
	"github.com/terraplay/geoquiz/internal/migrations"
	"github.com/terraplay/geoquiz/internal/store"
)

// stubEnricher avoids network calls; the game must stay playable either way.
type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, country, city string) (geoquiz.Enrichment, error) {
	return geoquiz.Enrichment{
		HistoricalFact: "fact",
		Person:         geoquiz.Person{Name: "Someone"},
		History:        "history",
	}, nil
}

func (stubEnricher) FollowUp(ctx context.Context, req geoquiz.FollowUpRequest) (geoquiz.FollowUpResult, error) {
	return geoquiz.FollowUpResult{Facts: []string{"a", "b", "c"}}, nil
}

func testCountries() []geoquiz.Country {
	return []geoquiz.Country{
		{
			Name:      "Varos",
			Code:      "va",
			Continent: "Atlantis",
			Coords:    geoquiz.Coordinates{Lat: 10, Lon: 10},
			Stats: geoquiz.Stats{
				Population: "1,000,000",
				Area:       geoquiz.StatUnknown,
				GDP:        geoquiz.StatUnknown,
			},
			Cities: []geoquiz.City{
				{Name: "Varoston", Coords: geoquiz.Coordinates{Lat: 10, Lon: 10}, Population: "250,000", Capital: true},
			},
			Tier: geoquiz.TierEasy,
		},
	}
}

func testRouter(t *testing.T) (*chi.Mux, *engine.Sequencer, *store.Store) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	st := store.New(db)

	logger := slog.Default()
	broker := NewBroker()
	seq := engine.NewSequencer(engine.Config{
		Logger:     logger,
		Selector:   engine.NewSelector(testCountries(), rand.New(rand.NewSource(7))),
		Enricher:   stubEnricher{},
		Presenter:  NewBrokerPresenter(broker),
		Store:      st,
		Difficulty: geoquiz.TierEasy,
		Rand:       rand.New(rand.NewSource(8)),
	})

	r := chi.NewRouter()
	addRoutes(r, logger, seq, st, broker, db, "")
	return r, seq, st
}

func waitPhase(t *testing.T, seq *engine.Sequencer, want geoquiz.Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if seq.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase = %q, want %q", seq.Phase(), want)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func getState(t *testing.T, r *chi.Mux) GameStateResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/game/state", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp GameStateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	return resp
}

func postJSON(t *testing.T, r *chi.Mux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGameStateIntro(t *testing.T) {
	r, _, _ := testRouter(t)

	state := getState(t, r)
	if state.Phase != geoquiz.PhaseIntro {
		t.Errorf("expected intro phase, got %q", state.Phase)
	}
	if state.Round != nil {
		t.Errorf("expected no round before start, got %+v", state.Round)
	}
}

func TestStartHidesCountryIdentity(t *testing.T) {
	r, seq, _ := testRouter(t)

	w := postJSON(t, r, "/api/game/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", w.Code)
	}
	waitPhase(t, seq, geoquiz.PhaseCountryGuess)

	state := getState(t, r)
	if state.Round == nil {
		t.Fatal("expected a live round")
	}
	if state.Round.CountryName != "" || state.Round.CountryCode != "" {
		t.Errorf("country identity leaked during guess: %+v", state.Round)
	}
	if state.Round.CountryCoords != nil {
		t.Error("country coordinates leaked during guess")
	}
	if len(state.Round.FlagOptions) != 0 {
		t.Error("flag options leaked during guess")
	}
	if state.Round.City.Coords != nil {
		t.Error("city coordinates leaked before city find")
	}
}

func TestLocationGuessFlow(t *testing.T) {
	r, seq, _ := testRouter(t)
	postJSON(t, r, "/api/game/start", nil)
	waitPhase(t, seq, geoquiz.PhaseCountryGuess)

	// Wrong region first.
	w := postJSON(t, r, "/api/game/guess/location", LocationGuessRequest{Region: "Elsewhere"})
	if w.Code != http.StatusOK {
		t.Fatalf("guess: expected 200, got %d", w.Code)
	}
	var resp GuessResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Correct {
		t.Error("wrong region reported correct")
	}

	// Correct region solves and reveals the identity.
	w = postJSON(t, r, "/api/game/guess/location", LocationGuessRequest{Region: "Varos"})
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Correct {
		t.Error("correct region reported wrong")
	}

	state := getState(t, r)
	if !state.CountrySolved {
		t.Error("expected countrySolved after correct guess")
	}
	if state.Round.CountryName != "Varos" {
		t.Errorf("expected identity revealed after solve, got %q", state.Round.CountryName)
	}

	// The pending auto-advance lands on FLAG_GUESS.
	waitPhase(t, seq, geoquiz.PhaseFlagGuess)
}

func TestLocationGuessValidation(t *testing.T) {
	r, _, _ := testRouter(t)

	w := postJSON(t, r, "/api/game/guess/location", LocationGuessRequest{Region: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank region, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/game/guess/location", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestMapClickFlow(t *testing.T) {
	r, seq, _ := testRouter(t)
	postJSON(t, r, "/api/game/start", nil)
	waitPhase(t, seq, geoquiz.PhaseCountryGuess)

	postJSON(t, r, "/api/game/guess/location", LocationGuessRequest{Region: "Varos"})
	waitPhase(t, seq, geoquiz.PhaseFlagGuess)

	// Walk to CITY_FIND: flag options exist even with one country in the
	// dataset, find the correct index by brute force.
	state := getState(t, r)
	if len(state.Round.FlagOptions) != 4 {
		t.Fatalf("expected 4 flag options, got %d", len(state.Round.FlagOptions))
	}
	for idx := range state.Round.FlagOptions {
		w := postJSON(t, r, "/api/game/guess/flag", FlagGuessRequest{Index: idx})
		var resp GuessResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Correct {
			break
		}
	}
	// STATS_COUNTRY has one population question; answer it, wait for the
	// reveal to pass, then continue manually.
	waitPhase(t, seq, geoquiz.PhaseStatsCountry)
	state = getState(t, r)
	if state.Quiz == nil || state.Quiz.Current == nil {
		t.Fatal("expected an open quiz question")
	}
	postJSON(t, r, "/api/game/quiz/answer", QuizAnswerRequest{Value: state.Quiz.Current.Options[0]})
	waitFor(t, func() bool {
		st := getState(t, r)
		return st.Quiz != nil && st.Quiz.Done
	}, "quiz never finished")
	postJSON(t, r, "/api/game/advance", nil)
	waitPhase(t, seq, geoquiz.PhaseCityFind)

	// A click ~100 km away misses and reports the distance.
	w := postJSON(t, r, "/api/game/guess/map-click", MapClickRequest{Lat: 10.9, Lon: 10})
	var miss MapClickResponse
	json.NewDecoder(w.Body).Decode(&miss)
	if miss.Hit {
		t.Error("distant click reported as hit")
	}
	if miss.MissKm < 95 || miss.MissKm > 105 {
		t.Errorf("expected ~100 km miss, got %d", miss.MissKm)
	}

	// A click on the city snaps.
	w = postJSON(t, r, "/api/game/guess/map-click", MapClickRequest{Lat: 10, Lon: 10})
	var hit MapClickResponse
	json.NewDecoder(w.Body).Decode(&hit)
	if !hit.Hit {
		t.Error("exact click reported as miss")
	}

	state = getState(t, r)
	if !state.CityFound {
		t.Error("expected cityFound after hit")
	}
	if state.Round.City.Coords == nil {
		t.Error("expected city coordinates revealed after find")
	}
}

func TestQuizAnswerWithoutOpenQuestion(t *testing.T) {
	r, _, _ := testRouter(t)

	w := postJSON(t, r, "/api/game/quiz/answer", QuizAnswerRequest{Value: "anything"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 outside stats phases, got %d", w.Code)
	}
}

func TestShowAnswerAndFollowUpsAccepted(t *testing.T) {
	r, seq, _ := testRouter(t)
	postJSON(t, r, "/api/game/start", nil)
	waitPhase(t, seq, geoquiz.PhaseCountryGuess)

	if w := postJSON(t, r, "/api/game/hint", nil); w.Code != http.StatusNoContent {
		t.Errorf("hint: expected 204, got %d", w.Code)
	}
	if w := postJSON(t, r, "/api/game/show-answer", nil); w.Code != http.StatusNoContent {
		t.Errorf("show-answer: expected 204, got %d", w.Code)
	}
	if w := postJSON(t, r, "/api/game/more-info", nil); w.Code != http.StatusAccepted {
		t.Errorf("more-info: expected 202, got %d", w.Code)
	}
}

func TestEventsStreamDeliversDirectives(t *testing.T) {
	broker := NewBroker()
	srv := httptest.NewServer(handleEvents(broker))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	// Give the subscription a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)
	broker.Publish(Directive{Type: "notify", Message: "hello", Severity: "info"})

	buf := make([]byte, 1024)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	chunk := string(buf[:n])
	if !bytes.Contains([]byte(chunk), []byte("event: directive")) {
		t.Errorf("missing event line in %q", chunk)
	}
	if !bytes.Contains([]byte(chunk), []byte(`"message":"hello"`)) {
		t.Errorf("missing payload in %q", chunk)
	}
}
