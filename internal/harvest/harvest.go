// Package harvest defines the game's domain types: the shared game state,
// the three team slots, the scenario catalog and the scoring rules.
// It has no I/O and no external dependencies.
package harvest

import "time"

const (
	InitialCoins = 1000
	InitialCrops = 10

	// CropValue is the coin value of one crop when totals are computed.
	CropValue = 50

	TimerBonus   = 50
	TimerPenalty = -30

	DefaultTimerDuration = 60

	// TimePenaltyChoiceID marks an answer recorded because the deadline
	// passed with no choice selected.
	TimePenaltyChoiceID = "TIME_PENALTY_ONLY"

	// NoScenario is the scenario index before the game starts.
	NoScenario = -1
)

// Crops lists the crop types a team can farm.
var Crops = []string{
	"Dates & Citrus",
	"Tomatoes & Cucumbers",
	"Onions & Okra",
}

type TeamID string

const (
	TeamA TeamID = "A"
	TeamB TeamID = "B"
	TeamC TeamID = "C"
)

// TeamIDs is the fixed slot order. It is also the leaderboard tie-break order.
var TeamIDs = [...]TeamID{TeamA, TeamB, TeamC}

func ParseTeamID(s string) (TeamID, bool) {
	for _, id := range TeamIDs {
		if string(id) == s {
			return id, true
		}
	}
	return "", false
}

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// Outcome is the frozen effect of one answer.
type Outcome struct {
	CoinsDelta   int `json:"coinsDelta"`
	CropsDelta   int `json:"cropsDelta"`
	TimerBonus   int `json:"timerBonus,omitempty"`
	TimerPenalty int `json:"timerPenalty,omitempty"`
}

type Answer struct {
	ChoiceID  string  `json:"choiceId"`
	Timestamp int64   `json:"timestamp"`
	Outcome   Outcome `json:"outcome"`
}

type TeamState struct {
	ID        TeamID         `json:"id"`
	ClaimedBy string         `json:"claimedBy,omitempty"`
	Name      string         `json:"name,omitempty"`
	Crop      string         `json:"crop,omitempty"`
	Coins     int            `json:"coins"`
	Crops     int            `json:"crops"`
	Answers   map[int]Answer `json:"answers"`
	Notes     string         `json:"notes,omitempty"`
}

// NewTeam returns an unclaimed slot with starting resources.
func NewTeam(id TeamID) *TeamState {
	return &TeamState{
		ID:      id,
		Coins:   InitialCoins,
		Crops:   InitialCrops,
		Answers: map[int]Answer{},
	}
}

func (t *TeamState) Claimed() bool { return t.ClaimedBy != "" }

// Ready reports whether the team is claimed and fully named.
func (t *TeamState) Ready() bool {
	return t.Claimed() && t.Name != "" && t.Crop != ""
}

func (t *TeamState) Answered(scenarioIndex int) bool {
	_, ok := t.Answers[scenarioIndex]
	return ok
}

func (t *TeamState) Clone() *TeamState {
	c := *t
	c.Answers = make(map[int]Answer, len(t.Answers))
	for k, v := range t.Answers {
		c.Answers[k] = v
	}
	return &c
}

// Timer is an open answer window for one scenario.
type Timer struct {
	StartTime     int64 `json:"startTime"` // unix milliseconds
	Duration      int   `json:"duration"`  // seconds
	ScenarioIndex int   `json:"scenarioIndex"`
}

// Remaining is max(0, duration - elapsed).
func (t Timer) Remaining(now time.Time) time.Duration {
	elapsed := now.Sub(time.UnixMilli(t.StartTime))
	left := time.Duration(t.Duration)*time.Second - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds rounds the remaining time up to whole seconds.
func (t Timer) RemainingSeconds(now time.Time) int {
	left := t.Remaining(now)
	return int((left + time.Second - 1) / time.Second)
}

func (t Timer) Expired(now time.Time) bool {
	return t.Remaining(now) == 0
}

type AdminSettings struct {
	RequireAllReady bool   `json:"requireAllReady"`
	TimerEnabled    bool   `json:"timerEnabled"`
	TimerDuration   int    `json:"timerDuration"`
	CurrentTimer    *Timer `json:"currentTimer,omitempty"`
}

type Standing struct {
	ID    TeamID `json:"id"`
	Total int    `json:"total"`
}

type Results struct {
	Leaderboard []Standing `json:"leaderboard"`
	Winner      TeamID     `json:"winner,omitempty"`
	EndedEarly  bool       `json:"endedEarly,omitempty"`
}

type GameState struct {
	Phase         Phase                 `json:"phase"`
	ScenarioIndex int                   `json:"scenarioIndex"`
	Teams         map[TeamID]*TeamState `json:"teams"`
	Results       *Results              `json:"results,omitempty"`
	AdminOnly     AdminSettings         `json:"adminOnly"`
	LastUpdate    int64                 `json:"lastUpdate"`
}

// NewGameState returns the lobby state with three unclaimed teams.
func NewGameState(now time.Time) *GameState {
	gs := &GameState{
		Phase:         PhaseLobby,
		ScenarioIndex: NoScenario,
		Teams:         make(map[TeamID]*TeamState, len(TeamIDs)),
		AdminOnly: AdminSettings{
			RequireAllReady: true,
			TimerDuration:   DefaultTimerDuration,
		},
		LastUpdate: now.UnixMilli(),
	}
	for _, id := range TeamIDs {
		gs.Teams[id] = NewTeam(id)
	}
	return gs
}

// Normalize repairs a decoded snapshot so the slot invariants hold:
// exactly the three known teams, non-nil answer maps, results only when
// finished.
func (g *GameState) Normalize() {
	teams := make(map[TeamID]*TeamState, len(TeamIDs))
	for _, id := range TeamIDs {
		t, ok := g.Teams[id]
		if !ok || t == nil {
			t = NewTeam(id)
		}
		t.ID = id
		if t.Answers == nil {
			t.Answers = map[int]Answer{}
		}
		teams[id] = t
	}
	g.Teams = teams
	if g.Phase == "" {
		g.Phase = PhaseLobby
	}
	if g.Phase != PhaseFinished {
		g.Results = nil
	} else if g.Results == nil {
		g.Results = Resolve(g.Teams, false)
	}
	if g.Phase == PhaseLobby {
		g.ScenarioIndex = NoScenario
	}
	if g.AdminOnly.TimerDuration <= 0 {
		g.AdminOnly.TimerDuration = DefaultTimerDuration
	}
	if !g.AdminOnly.TimerEnabled || g.Phase != PhaseRunning {
		g.AdminOnly.CurrentTimer = nil
	}
}

func (g *GameState) Clone() *GameState {
	c := *g
	c.Teams = make(map[TeamID]*TeamState, len(g.Teams))
	for id, t := range g.Teams {
		c.Teams[id] = t.Clone()
	}
	if g.Results != nil {
		r := *g.Results
		r.Leaderboard = append([]Standing(nil), g.Results.Leaderboard...)
		c.Results = &r
	}
	if g.AdminOnly.CurrentTimer != nil {
		t := *g.AdminOnly.CurrentTimer
		c.AdminOnly.CurrentTimer = &t
	}
	return &c
}

// ReadyCount counts teams that could start the game.
func (g *GameState) ReadyCount() int {
	n := 0
	for _, id := range TeamIDs {
		if g.Teams[id].Ready() {
			n++
		}
	}
	return n
}

// Pending lists claimed teams that have not answered the given scenario.
func (g *GameState) Pending(scenarioIndex int) []TeamID {
	var ids []TeamID
	for _, id := range TeamIDs {
		t := g.Teams[id]
		if t.Claimed() && !t.Answered(scenarioIndex) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ActiveTimer returns the running timer for scenarioIndex, if any.
func (g *GameState) ActiveTimer(scenarioIndex int) (Timer, bool) {
	t := g.AdminOnly.CurrentTimer
	if !g.AdminOnly.TimerEnabled || t == nil || t.ScenarioIndex != scenarioIndex {
		return Timer{}, false
	}
	return *t, true
}
