package server

import (
	"net/http"
	"strings"

	"github.com/terraplay/geoquiz/internal/engine"
	"github.com/terraplay/geoquiz/internal/geoquiz"
)

// GameStateResponse is the full redacted snapshot for the client.
type GameStateResponse struct {
	Phase          geoquiz.Phase                 `json:"phase"`
	Difficulty     geoquiz.DifficultyTier        `json:"difficulty"`
	Round          *RoundView                    `json:"round,omitempty"`
	HintLevel      int                           `json:"hintLevel"`
	CountrySolved  bool                          `json:"countrySolved"`
	CityFound      bool                          `json:"cityFound"`
	DisabledFlags  []int                         `json:"disabledFlags,omitempty"`
	Quiz           *QuizProgressView             `json:"quiz,omitempty"`
	FollowUpBusy   map[geoquiz.FollowUpKind]bool `json:"followUpBusy,omitempty"`
	PendingAdvance bool                          `json:"pendingAdvance"`
}

func handleGameState(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := seq.State()
		writeJSON(w, http.StatusOK, GameStateResponse{
			Phase:          st.Phase,
			Difficulty:     st.Difficulty,
			Round:          roundView(st.Phase, st.Round, st.CountrySolved, st.CityFound),
			HintLevel:      st.HintLevel,
			CountrySolved:  st.CountrySolved,
			CityFound:      st.CityFound,
			DisabledFlags:  st.DisabledFlags,
			Quiz:           quizView(st.Quiz),
			FollowUpBusy:   st.FollowUpBusy,
			PendingAdvance: st.PendingAdvance,
		})
	}
}

func handleStart(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.Start()
		writeJSON(w, http.StatusOK, map[string]any{"phase": seq.Phase()})
	}
}

func handleAdvance(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.Advance()
		writeJSON(w, http.StatusOK, map[string]any{"phase": seq.Phase()})
	}
}

type LocationGuessRequest struct {
	Region string `json:"region"`
}

type GuessResponse struct {
	Correct bool `json:"correct"`
}

func handleLocationGuess(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LocationGuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Region = strings.TrimSpace(req.Region)
		if req.Region == "" {
			writeError(w, http.StatusBadRequest, "region is required")
			return
		}
		writeJSON(w, http.StatusOK, GuessResponse{Correct: seq.SubmitLocationGuess(req.Region)})
	}
}

type MapClickRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type MapClickResponse struct {
	Hit    bool `json:"hit"`
	MissKm int  `json:"missKm,omitempty"`
}

func handleMapClick(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MapClickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		hit, missKm := seq.SubmitMapClick(geoquiz.Coordinates{Lat: req.Lat, Lon: req.Lon})
		writeJSON(w, http.StatusOK, MapClickResponse{Hit: hit, MissKm: missKm})
	}
}

type FlagGuessRequest struct {
	Index int `json:"index"`
}

func handleFlagGuess(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FlagGuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		writeJSON(w, http.StatusOK, GuessResponse{Correct: seq.SubmitFlagChoice(req.Index)})
	}
}

type QuizAnswerRequest struct {
	Value string `json:"value"`
}

type QuizAnswerResponse struct {
	Correct bool `json:"correct"`
}

func handleQuizAnswer(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuizAnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		correct, accepted := seq.SubmitQuizAnswer(req.Value)
		if !accepted {
			writeError(w, http.StatusConflict, "no quiz question is open")
			return
		}
		writeJSON(w, http.StatusOK, QuizAnswerResponse{Correct: correct})
	}
}

func handleHint(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.RequestHint()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleShowAnswer(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.RequestShowAnswer()
		w.WriteHeader(http.StatusNoContent)
	}
}

// Follow-up handlers return 202: the fetch happens in the background and the
// result arrives as a render directive.

func handleMoreInfo(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.RequestMoreInfo()
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleOtherPerson(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.RequestOtherPerson()
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleHistoryDeepDive(seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seq.RequestHistoryDeepDive()
		w.WriteHeader(http.StatusAccepted)
	}
}
