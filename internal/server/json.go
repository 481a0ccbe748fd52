package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/harvest/internal/engine"
	"github.com/playperu/harvest/internal/harvest"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeEngineError maps an engine rejection to a status code. The
// sentinel's message is shown to the user as is.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownTeam):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidClaim),
		errors.Is(err, engine.ErrInvalidTimer),
		errors.Is(err, engine.ErrUnknownChoice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrTeamClaimed),
		errors.Is(err, engine.ErrTeamNotClaimed),
		errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, engine.ErrNotReady),
		errors.Is(err, engine.ErrTeamsPending),
		errors.Is(err, engine.ErrScenarioMismatch),
		errors.Is(err, engine.ErrTimerRunning),
		errors.Is(err, engine.ErrEndedEarly):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func teamParam(w http.ResponseWriter, r *http.Request) (harvest.TeamID, bool) {
	id, ok := harvest.ParseTeamID(chi.URLParam(r, "teamID"))
	if !ok {
		writeError(w, http.StatusNotFound, engine.ErrUnknownTeam.Error())
	}
	return id, ok
}
