package engine

import (
	"context"
	"strings"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/harvest"
)

// ClaimTeam binds a client to a team slot. The owner may re-claim to
// change name or crop while in the lobby; after the lobby a re-claim by
// the owner is a no-op.
func (e *Engine) ClaimTeam(ctx context.Context, id harvest.TeamID, clientID, name, crop string) (*harvest.GameState, error) {
	name, crop = strings.TrimSpace(name), strings.TrimSpace(crop)
	if clientID == "" || name == "" || crop == "" {
		return nil, ErrInvalidClaim
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.team(id)
	if err != nil {
		return nil, err
	}
	if t.Claimed() && t.ClaimedBy != clientID {
		return nil, ErrTeamClaimed
	}
	if t.Claimed() && (e.state.Phase != harvest.PhaseLobby || (t.Name == name && t.Crop == crop)) {
		return e.state.Clone(), nil
	}
	if e.state.Phase != harvest.PhaseLobby {
		return nil, ErrWrongPhase
	}

	t.ClaimedBy, t.Name, t.Crop = clientID, name, crop
	return e.commit(ctx, "claim", e.saveTeam(t)), nil
}

// ReleaseTeam returns a slot to its unclaimed defaults. Lobby only.
func (e *Engine) ReleaseTeam(ctx context.Context, id harvest.TeamID) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.team(id); err != nil {
		return nil, err
	}
	if e.state.Phase != harvest.PhaseLobby {
		return nil, ErrWrongPhase
	}

	t := harvest.NewTeam(id)
	e.state.Teams[id] = t
	return e.commit(ctx, "release", e.saveTeam(t)), nil
}

func (e *Engine) UpdateNotes(ctx context.Context, id harvest.TeamID, notes string) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.team(id)
	if err != nil {
		return nil, err
	}
	t.Notes = notes
	return e.commit(ctx, "notes", e.saveTeam(t)), nil
}

// answerable checks that team id may record an answer for scenarioIndex.
// done is true when an answer already exists, which callers treat as
// success without mutating.
func (e *Engine) answerable(id harvest.TeamID, scenarioIndex int) (t *harvest.TeamState, done bool, err error) {
	t, err = e.team(id)
	if err != nil {
		return nil, false, err
	}
	if t.Answered(scenarioIndex) {
		return t, true, nil
	}
	if e.state.Phase != harvest.PhaseRunning {
		return nil, false, ErrWrongPhase
	}
	if scenarioIndex != e.state.ScenarioIndex {
		return nil, false, ErrScenarioMismatch
	}
	if !t.Claimed() {
		return nil, false, ErrTeamNotClaimed
	}
	return t, false, nil
}

// SubmitAnswer records a team's choice for the current scenario and applies
// its effect. Effects are evaluated against the team's counters before the
// answer. A running timer adds TimerBonus; an expired one adds
// TimerPenalty. A second submission for the same scenario is a no-op.
func (e *Engine) SubmitAnswer(ctx context.Context, id harvest.TeamID, scenarioIndex int, choiceID string) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, done, err := e.answerable(id, scenarioIndex)
	if err != nil {
		return nil, err
	}
	if done {
		return e.state.Clone(), nil
	}
	ch, ok := e.catalog.Choice(scenarioIndex, choiceID)
	if !ok {
		return nil, ErrUnknownChoice
	}

	now := e.now()
	out := harvest.Outcome{
		CoinsDelta: ch.Coins.Eval(t),
		CropsDelta: ch.Crops.Eval(t),
	}
	if timer, ok := e.state.ActiveTimer(scenarioIndex); ok {
		if timer.Expired(now) {
			out.TimerPenalty = harvest.TimerPenalty
		} else {
			out.TimerBonus = harvest.TimerBonus
		}
		out.CoinsDelta += out.TimerBonus + out.TimerPenalty
	}

	return e.record(ctx, "answer", t, scenarioIndex, harvest.Answer{
		ChoiceID:  ch.ID,
		Timestamp: now.UnixMilli(),
		Outcome:   out,
	}), nil
}

// SubmitTimePenalty records that the deadline passed with no choice. Only
// TimerPenalty is applied. The scenario's timer must have expired.
func (e *Engine) SubmitTimePenalty(ctx context.Context, id harvest.TeamID, scenarioIndex int) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, done, err := e.answerable(id, scenarioIndex)
	if err != nil {
		return nil, err
	}
	if done {
		return e.state.Clone(), nil
	}
	now := e.now()
	timer, ok := e.state.ActiveTimer(scenarioIndex)
	if !ok || !timer.Expired(now) {
		return nil, ErrTimerRunning
	}

	return e.record(ctx, "time_penalty", t, scenarioIndex, harvest.Answer{
		ChoiceID:  harvest.TimePenaltyChoiceID,
		Timestamp: now.UnixMilli(),
		Outcome: harvest.Outcome{
			CoinsDelta:   harvest.TimerPenalty,
			TimerPenalty: harvest.TimerPenalty,
		},
	}), nil
}

func (e *Engine) record(ctx context.Context, op string, t *harvest.TeamState, scenarioIndex int, a harvest.Answer) *harvest.GameState {
	t.Coins += a.Outcome.CoinsDelta
	t.Crops += a.Outcome.CropsDelta
	t.Answers[scenarioIndex] = a

	return e.commit(ctx, op,
		func(ctx context.Context) error { return e.repo.SaveAnswer(ctx, t.ID, scenarioIndex, a) },
		e.saveTeam(t),
	)
}

// StartGame moves from the lobby to the first scenario. With
// requireAllReady every team must be ready, otherwise at least one.
func (e *Engine) StartGame(ctx context.Context) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != harvest.PhaseLobby {
		return nil, ErrWrongPhase
	}
	ready := e.state.ReadyCount()
	if ready == 0 || (e.state.AdminOnly.RequireAllReady && ready < len(harvest.TeamIDs)) {
		return nil, ErrNotReady
	}

	e.state.Phase = harvest.PhaseRunning
	e.state.ScenarioIndex = 0
	e.startTimer(0)
	return e.commit(ctx, "start"), nil
}

// AdvanceScenario moves to the next scenario once every claimed team has
// answered the current one. Past the last scenario the game finishes.
func (e *Engine) AdvanceScenario(ctx context.Context) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != harvest.PhaseRunning {
		return nil, ErrWrongPhase
	}
	if len(e.state.Pending(e.state.ScenarioIndex)) > 0 {
		return nil, ErrTeamsPending
	}

	next := e.state.ScenarioIndex + 1
	if next >= len(e.catalog) {
		e.finish(false)
		return e.commit(ctx, "finish"), nil
	}
	e.state.ScenarioIndex = next
	e.startTimer(next)
	return e.commit(ctx, "advance"), nil
}

// EndGameEarly finishes the game with the current counters.
func (e *Engine) EndGameEarly(ctx context.Context) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != harvest.PhaseRunning {
		return nil, ErrWrongPhase
	}
	e.finish(true)
	return e.commit(ctx, "end_early"), nil
}

func (e *Engine) finish(endedEarly bool) {
	e.state.Phase = harvest.PhaseFinished
	e.state.AdminOnly.CurrentTimer = nil
	e.state.Results = harvest.Resolve(e.state.Teams, endedEarly)
}

// ShowWinner broadcasts the winner reveal. It does not change the state.
func (e *Engine) ShowWinner(_ context.Context) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != harvest.PhaseFinished {
		return nil, ErrWrongPhase
	}
	if e.state.Results.EndedEarly {
		return nil, ErrEndedEarly
	}
	snap := e.state.Clone()
	e.pub.Publish(broadcast.Event{Type: broadcast.EventWinner, State: snap})
	return snap, nil
}

// ResetGame deletes all stored game data and starts over in the lobby.
// Clients receive a reset event rather than a state event.
func (e *Engine) ResetGame(ctx context.Context) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := e.repo.Reset(ctx); err != nil {
		e.logger.Error("deleting stored game", "error", err)
	}
	e.state = harvest.NewGameState(e.now())
	if err := e.repo.SaveGameState(ctx, e.state); err != nil {
		e.logger.Error("persisting game state", "op", "reset", "error", err)
	}

	e.pub.Publish(broadcast.Event{Type: broadcast.EventReset})
	e.logger.Info("game reset")
	return e.state.Clone(), nil
}

func (e *Engine) UpdateRequireAllReady(ctx context.Context, on bool) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.AdminOnly.RequireAllReady = on
	return e.commit(ctx, "require_all_ready"), nil
}

// UpdateTimerSettings changes the timer for future scenarios. Disabling
// the timer also cancels the one in progress; a zero duration then keeps
// the stored one.
func (e *Engine) UpdateTimerSettings(ctx context.Context, enabled bool, seconds int) (*harvest.GameState, error) {
	if (enabled || seconds != 0) && (seconds < 1 || seconds > MaxTimerDuration) {
		return nil, ErrInvalidTimer
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.AdminOnly.TimerEnabled = enabled
	if seconds != 0 {
		e.state.AdminOnly.TimerDuration = seconds
	}
	if !enabled {
		e.state.AdminOnly.CurrentTimer = nil
	}
	return e.commit(ctx, "timer_settings"), nil
}

// StartTimer (re)starts the answer window of the current scenario. It does
// nothing while the timer is disabled.
func (e *Engine) StartTimer(ctx context.Context, scenarioIndex int) (*harvest.GameState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.AdminOnly.TimerEnabled {
		return e.state.Clone(), nil
	}
	if e.state.Phase != harvest.PhaseRunning {
		return nil, ErrWrongPhase
	}
	if scenarioIndex != e.state.ScenarioIndex {
		return nil, ErrScenarioMismatch
	}
	e.startTimer(scenarioIndex)
	return e.commit(ctx, "start_timer"), nil
}

// startTimer replaces the current timer. Callers hold e.mu.
func (e *Engine) startTimer(scenarioIndex int) {
	if !e.state.AdminOnly.TimerEnabled {
		e.state.AdminOnly.CurrentTimer = nil
		return
	}
	e.state.AdminOnly.CurrentTimer = &harvest.Timer{
		StartTime:     e.now().UnixMilli(),
		Duration:      e.state.AdminOnly.TimerDuration,
		ScenarioIndex: scenarioIndex,
	}
}
