package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/harvest/internal/engine"
	"github.com/playperu/harvest/internal/repository"
)

// ClaimRequest is the request body for POST /api/teams/{teamID}/claim.
type ClaimRequest struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Crop     string `json:"crop"`
}

// AnswerRequest is the request body for POST /api/teams/{teamID}/answer.
type AnswerRequest struct {
	ScenarioIndex *int   `json:"scenarioIndex"`
	ChoiceID      string `json:"choiceId"`
}

// PenaltyRequest is the request body for POST /api/teams/{teamID}/penalty.
type PenaltyRequest struct {
	ScenarioIndex *int `json:"scenarioIndex"`
}

func handleGameState(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, eng.Snapshot())
	}
}

func handleScenarios(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, eng.Catalog())
	}
}

// handleTeam serves the stored per-team document so a reconnecting device
// can resume without the whole state. Slots never written yet come from
// the live state.
func handleTeam(logger *slog.Logger, eng *engine.Engine, repo *repository.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := teamParam(w, r)
		if !ok {
			return
		}

		t, err := repo.Team(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, t)
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Warn("reading team document", "team", id, "error", err)
		}
		writeJSON(w, http.StatusOK, eng.Snapshot().Teams[id])
	}
}

func handleClaim(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := teamParam(w, r)
		if !ok {
			return
		}
		var req ClaimRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gs, err := eng.ClaimTeam(r.Context(), id, req.ClientID, req.Name, req.Crop)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleAnswer(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := teamParam(w, r)
		if !ok {
			return
		}
		var req AnswerRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ScenarioIndex == nil || req.ChoiceID == "" {
			writeError(w, http.StatusBadRequest, "scenarioIndex and choiceId are required")
			return
		}

		gs, err := eng.SubmitAnswer(r.Context(), id, *req.ScenarioIndex, req.ChoiceID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handlePenalty(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := teamParam(w, r)
		if !ok {
			return
		}
		var req PenaltyRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ScenarioIndex == nil {
			writeError(w, http.StatusBadRequest, "scenarioIndex is required")
			return
		}

		gs, err := eng.SubmitTimePenalty(r.Context(), id, *req.ScenarioIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}
