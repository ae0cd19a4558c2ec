package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/terraplay/geoquiz/internal/engine"
	"github.com/terraplay/geoquiz/internal/store"
)

func addRoutes(r chi.Router, logger *slog.Logger, seq *engine.Sequencer, st *store.Store, broker *Broker, db *sql.DB, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoQuiz API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))
	r.Get("/ws/echo", handleWSEcho(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/game/state", handleGameState(seq))
		r.Post("/game/start", handleStart(seq))
		r.Post("/game/advance", handleAdvance(seq))
		r.Post("/game/guess/location", handleLocationGuess(seq))
		r.Post("/game/guess/map-click", handleMapClick(seq))
		r.Post("/game/guess/flag", handleFlagGuess(seq))
		r.Post("/game/quiz/answer", handleQuizAnswer(seq))
		r.Post("/game/hint", handleHint(seq))
		r.Post("/game/show-answer", handleShowAnswer(seq))
		r.Post("/game/more-info", handleMoreInfo(seq))
		r.Post("/game/other-person", handleOtherPerson(seq))
		r.Post("/game/history-deep-dive", handleHistoryDeepDive(seq))
		r.Get("/game/events", handleEvents(broker))

		r.Get("/settings", handleGetSettings(st))
		r.Put("/settings", handlePutSettings(logger, st, seq))
		r.Delete("/used-cities", handleResetUsedCities(st, seq))
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
