package server

import (
	"context"
	"net/http"

	"github.com/playperu/harvest/internal/engine"
	"github.com/playperu/harvest/internal/harvest"
)

// TimerStartRequest is the request body for POST /api/admin/game/timer.
type TimerStartRequest struct {
	ScenarioIndex *int `json:"scenarioIndex"`
}

// RequireAllReadyRequest is the request body for PUT /api/admin/game/settings/ready.
type RequireAllReadyRequest struct {
	RequireAllReady bool `json:"requireAllReady"`
}

// TimerSettingsRequest is the request body for PUT /api/admin/game/settings/timer.
type TimerSettingsRequest struct {
	Enabled  bool `json:"enabled"`
	Duration int  `json:"duration"`
}

// NotesRequest is the request body for PUT /api/admin/teams/{teamID}/notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// handleAdminOp serves an engine transition that takes no input.
func handleAdminOp(op func(context.Context) (*harvest.GameState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs, err := op(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleAdminStartTimer(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TimerStartRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ScenarioIndex == nil {
			writeError(w, http.StatusBadRequest, "scenarioIndex is required")
			return
		}

		gs, err := eng.StartTimer(r.Context(), *req.ScenarioIndex)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleAdminRequireAllReady(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RequireAllReadyRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gs, err := eng.UpdateRequireAllReady(r.Context(), req.RequireAllReady)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleAdminTimerSettings(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TimerSettingsRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gs, err := eng.UpdateTimerSettings(r.Context(), req.Enabled, req.Duration)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleAdminReleaseTeam(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := teamParam(w, r)
		if !ok {
			return
		}

		gs, err := eng.ReleaseTeam(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleAdminNotes(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := teamParam(w, r)
		if !ok {
			return
		}
		var req NotesRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gs, err := eng.UpdateNotes(r.Context(), id, req.Notes)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}
