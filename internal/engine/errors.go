package engine

import "errors"

// Validation failures. None of them mutate or broadcast.
var (
	ErrUnknownTeam      = errors.New("unknown team")
	ErrInvalidClaim     = errors.New("client id, name and crop are required")
	ErrTeamClaimed      = errors.New("team already claimed")
	ErrTeamNotClaimed   = errors.New("team is not claimed")
	ErrWrongPhase       = errors.New("not allowed in the current phase")
	ErrNotReady         = errors.New("not all teams ready")
	ErrTeamsPending     = errors.New("not all teams have answered")
	ErrScenarioMismatch = errors.New("scenario is not the current scenario")
	ErrUnknownChoice    = errors.New("unknown choice")
	ErrTimerRunning     = errors.New("no expired timer for this scenario")
	ErrEndedEarly       = errors.New("game ended early, no winner to reveal")
	ErrInvalidTimer     = errors.New("timer duration must be between 1 and 3600 seconds")
)
