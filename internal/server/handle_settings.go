package server

import (
	"log/slog"
	"net/http"

	"github.com/terraplay/geoquiz/internal/engine"
	"github.com/terraplay/geoquiz/internal/geoquiz"
	"github.com/terraplay/geoquiz/internal/store"
)

type SettingsResponse struct {
	Difficulty string `json:"difficulty"`
	Theme      string `json:"theme"`
	HasAPIKey  bool   `json:"hasApiKey"`
}

// SettingsRequest updates any subset of the settings. Omitted fields keep
// their stored values.
type SettingsRequest struct {
	Difficulty *string `json:"difficulty"`
	Theme      *string `json:"theme"`
	APIKey     *string `json:"apiKey"`
}

func handleGetSettings(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		difficulty, err := st.Setting(r.Context(), store.SettingDifficulty, string(geoquiz.TierEasy))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		theme, err := st.Setting(r.Context(), store.SettingTheme, "system")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		apiKey, err := st.Setting(r.Context(), store.SettingAPIKey, "")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, SettingsResponse{
			Difficulty: difficulty,
			Theme:      theme,
			HasAPIKey:  apiKey != "",
		})
	}
}

func handlePutSettings(logger *slog.Logger, st *store.Store, seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Difficulty != nil {
			tier := geoquiz.DifficultyTier(*req.Difficulty)
			if !tier.Valid() {
				writeError(w, http.StatusBadRequest, "unknown difficulty")
				return
			}
			if err := st.SetSetting(r.Context(), store.SettingDifficulty, string(tier)); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			// Takes effect from the next round selection.
			seq.SetDifficulty(tier)
			logger.Info("difficulty changed", "tier", tier)
		}

		if req.Theme != nil {
			if err := st.SetSetting(r.Context(), store.SettingTheme, *req.Theme); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		if req.APIKey != nil {
			if err := st.SetSetting(r.Context(), store.SettingAPIKey, *req.APIKey); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		handleGetSettings(st)(w, r)
	}
}

func handleResetUsedCities(st *store.Store, seq *engine.Sequencer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.ResetUsedCities(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		seq.ResetUsed()
		w.WriteHeader(http.StatusNoContent)
	}
}
