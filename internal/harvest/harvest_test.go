package harvest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEffectEval(t *testing.T) {
	team := &TeamState{Coins: 900, Crops: 10}

	tests := []struct {
		name   string
		effect Effect
		want   int
	}{
		{name: "constant", effect: Const(-200), want: -200},
		{name: "per crop", effect: Per(FieldCrops, 40, 1), want: 400},
		{name: "half coins lost", effect: Per(FieldCoins, -1, 2), want: -450},
		{name: "quarter crops truncates toward zero", effect: Per(FieldCrops, -1, 4), want: -2},
		{name: "zero value", effect: Effect{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.effect.Eval(team); got != tt.want {
				t.Errorf("Eval() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectJSON(t *testing.T) {
	var ch Choice
	data := `{"id":"x","label":"X","coinsDelta":-150,"cropsDelta":{"kind":"proportional","field":"crops","num":-1,"den":2}}`
	if err := json.Unmarshal([]byte(data), &ch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ch.Coins != Const(-150) {
		t.Errorf("coins = %+v, want constant -150", ch.Coins)
	}
	if ch.Crops != Per(FieldCrops, -1, 2) {
		t.Errorf("crops = %+v, want proportional crops -1/2", ch.Crops)
	}

	out, err := json.Marshal(ch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"coinsDelta":-150`) {
		t.Errorf("constant effect not written as a number: %s", out)
	}
}

func TestCatalogValidate(t *testing.T) {
	if err := DefaultCatalog().Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}

	tests := []struct {
		name    string
		catalog Catalog
	}{
		{name: "empty", catalog: Catalog{}},
		{name: "no choices", catalog: Catalog{{ID: "s"}}},
		{name: "duplicate choice", catalog: Catalog{{ID: "s", Choices: []Choice{{ID: "a"}, {ID: "a"}}}}},
		{name: "reserved choice id", catalog: Catalog{{ID: "s", Choices: []Choice{{ID: TimePenaltyChoiceID}}}}},
		{name: "zero denominator", catalog: Catalog{{ID: "s", Choices: []Choice{{ID: "a", Coins: Per(FieldCrops, 1, 0)}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.catalog.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCatalogChoice(t *testing.T) {
	c := DefaultCatalog()

	ch, ok := c.Choice(2, "pest-1")
	if !ok {
		t.Fatal("expected pest-1 in scenario 2")
	}
	if ch.Coins.Value != -150 {
		t.Errorf("coins = %d, want -150", ch.Coins.Value)
	}

	manual, ok := c.Choice(2, "pest-3")
	if !ok {
		t.Fatal("expected pest-3 in scenario 2")
	}
	if got := manual.Crops.Eval(&TeamState{Crops: 100}); got != -4 {
		t.Errorf("pest-3 crops = %d, want flat -4", got)
	}

	if _, ok := c.Choice(0, "pest-1"); ok {
		t.Error("pest-1 should not resolve in scenario 0")
	}
	if _, ok := c.Choice(len(c), "harvest-1"); ok {
		t.Error("out of range index should not resolve")
	}
}

func TestRankTieBreak(t *testing.T) {
	gs := NewGameState(time.Now())
	for _, id := range TeamIDs {
		gs.Teams[id].ClaimedBy = "c-" + string(id)
	}
	// A and C tie, B leads.
	gs.Teams[TeamA].Coins = 700
	gs.Teams[TeamB].Coins = 900
	gs.Teams[TeamC].Coins = 700

	got := Rank(gs.Teams)
	want := []TeamID{TeamB, TeamA, TeamC}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("rank[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Total != 900+10*CropValue {
		t.Errorf("total = %d, want %d", got[0].Total, 900+10*CropValue)
	}
}

func TestResolveSkipsUnclaimed(t *testing.T) {
	gs := NewGameState(time.Now())
	gs.Teams[TeamA].ClaimedBy = "c1"
	gs.Teams[TeamA].Coins = 700 // 1200 total
	gs.Teams[TeamB].ClaimedBy = "c2"
	gs.Teams[TeamB].Coins = 950 // 1450 total

	r := Resolve(gs.Teams, false)
	if len(r.Leaderboard) != 2 {
		t.Fatalf("leaderboard = %+v, want 2 entries", r.Leaderboard)
	}
	if r.Leaderboard[0] != (Standing{ID: TeamB, Total: 1450}) {
		t.Errorf("first = %+v", r.Leaderboard[0])
	}
	if r.Leaderboard[1] != (Standing{ID: TeamA, Total: 1200}) {
		t.Errorf("second = %+v", r.Leaderboard[1])
	}
	if r.Winner != TeamB {
		t.Errorf("winner = %q, want B", r.Winner)
	}

	empty := Resolve(NewGameState(time.Now()).Teams, true)
	if empty.Winner != "" || len(empty.Leaderboard) != 0 {
		t.Errorf("expected no winner without claimed teams, got %+v", empty)
	}
}

func TestTimerRemaining(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	timer := Timer{StartTime: start.UnixMilli(), Duration: 10}

	tests := []struct {
		name    string
		elapsed time.Duration
		secs    int
		expired bool
	}{
		{name: "just started", elapsed: 0, secs: 10},
		{name: "partial second rounds up", elapsed: 4500 * time.Millisecond, secs: 6},
		{name: "last millisecond", elapsed: 9999 * time.Millisecond, secs: 1},
		{name: "exactly expired", elapsed: 10 * time.Second, secs: 0, expired: true},
		{name: "long expired", elapsed: time.Minute, secs: 0, expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start.Add(tt.elapsed)
			if got := timer.RemainingSeconds(now); got != tt.secs {
				t.Errorf("RemainingSeconds = %d, want %d", got, tt.secs)
			}
			if got := timer.Expired(now); got != tt.expired {
				t.Errorf("Expired = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	var gs GameState
	data := `{"phase":"lobby","scenarioIndex":3,"teams":{"A":{"coins":5,"crops":1},"Z":{"coins":1}},"results":{"leaderboard":[]},"adminOnly":{"timerDuration":0,"currentTimer":{"startTime":1,"duration":5,"scenarioIndex":0}}}`
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	gs.Normalize()

	if len(gs.Teams) != 3 {
		t.Fatalf("teams = %d, want 3", len(gs.Teams))
	}
	if _, ok := gs.Teams["Z"]; ok {
		t.Error("unknown team Z should be dropped")
	}
	if gs.Teams[TeamA].Coins != 5 || gs.Teams[TeamA].ID != TeamA || gs.Teams[TeamA].Answers == nil {
		t.Errorf("team A not preserved: %+v", gs.Teams[TeamA])
	}
	if gs.Teams[TeamB].Coins != InitialCoins {
		t.Errorf("team B coins = %d, want %d", gs.Teams[TeamB].Coins, InitialCoins)
	}
	if gs.Results != nil {
		t.Error("results must be cleared outside finished")
	}
	if gs.ScenarioIndex != NoScenario {
		t.Errorf("scenarioIndex = %d, want %d", gs.ScenarioIndex, NoScenario)
	}
	if gs.AdminOnly.CurrentTimer != nil {
		t.Error("timer must be cleared when timer disabled")
	}
	if gs.AdminOnly.TimerDuration != DefaultTimerDuration {
		t.Errorf("timerDuration = %d, want %d", gs.AdminOnly.TimerDuration, DefaultTimerDuration)
	}
}

func TestCloneIsDeep(t *testing.T) {
	gs := NewGameState(time.Now())
	gs.AdminOnly.CurrentTimer = &Timer{Duration: 5}
	c := gs.Clone()

	c.Teams[TeamA].Coins = 1
	c.Teams[TeamA].Answers[0] = Answer{ChoiceID: "x"}
	c.AdminOnly.CurrentTimer.Duration = 99

	if gs.Teams[TeamA].Coins != InitialCoins || len(gs.Teams[TeamA].Answers) != 0 {
		t.Error("clone shares team state")
	}
	if gs.AdminOnly.CurrentTimer.Duration != 5 {
		t.Error("clone shares timer")
	}
}
