package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoQuiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the GeoQuiz game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /ws/echo
	getWSEcho, _ := r.NewOperationContext(http.MethodGet, "/ws/echo")
	getWSEcho.SetSummary("WebSocket echo")
	getWSEcho.SetDescription("Upgrades to a WebSocket connection that echoes messages back.")
	getWSEcho.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWSEcho)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the current phase and a redacted round snapshot.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getState)

	// POST /api/game/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/game/start")
	postStart.SetSummary("Start the game")
	postStart.SetDescription("Leaves the intro and begins the first round. No-op once started.")
	postStart.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postStart)

	// POST /api/game/advance
	postAdvance, _ := r.NewOperationContext(http.MethodPost, "/api/game/advance")
	postAdvance.SetSummary("Advance phase")
	postAdvance.SetDescription("Moves to the next phase; from the history phase this starts a fresh round.")
	postAdvance.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postAdvance)

	// POST /api/game/guess/location
	postLocation, _ := r.NewOperationContext(http.MethodPost, "/api/game/guess/location")
	postLocation.SetSummary("Guess the country")
	postLocation.SetDescription("Submits a clicked region identifier during the country guess phase.")
	postLocation.AddReqStructure(LocationGuessRequest{})
	postLocation.AddRespStructure(GuessResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLocation.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postLocation)

	// POST /api/game/guess/map-click
	postClick, _ := r.NewOperationContext(http.MethodPost, "/api/game/guess/map-click")
	postClick.SetSummary("Locate the city")
	postClick.SetDescription("Submits map coordinates during the city find phase. Misses report the distance in km.")
	postClick.AddReqStructure(MapClickRequest{})
	postClick.AddRespStructure(MapClickResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClick.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postClick)

	// POST /api/game/guess/flag
	postFlag, _ := r.NewOperationContext(http.MethodPost, "/api/game/guess/flag")
	postFlag.SetSummary("Pick a flag")
	postFlag.SetDescription("Submits a flag option index. Wrong options are disabled for the rest of the phase.")
	postFlag.AddReqStructure(FlagGuessRequest{})
	postFlag.AddRespStructure(GuessResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postFlag.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postFlag)

	// POST /api/game/quiz/answer
	postQuiz, _ := r.NewOperationContext(http.MethodPost, "/api/game/quiz/answer")
	postQuiz.SetSummary("Answer a stats question")
	postQuiz.SetDescription("Submits an option value for the current stats quiz question.")
	postQuiz.AddReqStructure(QuizAnswerRequest{})
	postQuiz.AddRespStructure(QuizAnswerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postQuiz)

	// POST /api/game/hint
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/game/hint")
	postHint.SetSummary("Request a hint")
	postHint.SetDescription("Grants the next hint level for the current guessing phase.")
	postHint.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(postHint)

	// POST /api/game/show-answer
	postShow, _ := r.NewOperationContext(http.MethodPost, "/api/game/show-answer")
	postShow.SetSummary("Show the answer")
	postShow.SetDescription("Reveals the current phase's answer and moves on.")
	postShow.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(postShow)

	// POST /api/game/more-info
	postMore, _ := r.NewOperationContext(http.MethodPost, "/api/game/more-info")
	postMore.SetSummary("Fetch more facts")
	postMore.SetDescription("Asynchronously fetches three extra facts about the round's city.")
	postMore.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusAccepted))
	_ = r.AddOperation(postMore)

	// POST /api/game/other-person
	postOther, _ := r.NewOperationContext(http.MethodPost, "/api/game/other-person")
	postOther.SetSummary("Fetch another person")
	postOther.SetDescription("Asynchronously replaces the round's notable person with a different one.")
	postOther.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusAccepted))
	_ = r.AddOperation(postOther)

	// POST /api/game/history-deep-dive
	postDeep, _ := r.NewOperationContext(http.MethodPost, "/api/game/history-deep-dive")
	postDeep.SetSummary("Fetch history deep dive")
	postDeep.SetDescription("Asynchronously fetches five key points from the city's history.")
	postDeep.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusAccepted))
	_ = r.AddOperation(postDeep)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE directive stream")
	getEvents.SetDescription("Server-Sent Events stream of presentation directives.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/settings
	getSettings, _ := r.NewOperationContext(http.MethodGet, "/api/settings")
	getSettings.SetSummary("Get settings")
	getSettings.SetDescription("Returns the stored player settings.")
	getSettings.AddRespStructure(SettingsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getSettings)

	// PUT /api/settings
	putSettings, _ := r.NewOperationContext(http.MethodPut, "/api/settings")
	putSettings.SetSummary("Update settings")
	putSettings.SetDescription("Updates any subset of the settings. Difficulty applies from the next round.")
	putSettings.AddReqStructure(SettingsRequest{})
	putSettings.AddRespStructure(SettingsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	putSettings.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(putSettings)

	// DELETE /api/used-cities
	deleteUsed, _ := r.NewOperationContext(http.MethodDelete, "/api/used-cities")
	deleteUsed.SetSummary("Reset used cities")
	deleteUsed.SetDescription("Forgets every played city so the full pool is selectable again.")
	deleteUsed.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	_ = r.AddOperation(deleteUsed)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
