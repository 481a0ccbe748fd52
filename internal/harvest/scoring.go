package harvest

import "sort"

// Total is the final score of a team: coins plus crops at CropValue each.
func Total(t *TeamState) int {
	return t.Coins + t.Crops*CropValue
}

// Rank orders claimed teams by descending total. Equal totals keep the
// fixed slot order A, B, C.
func Rank(teams map[TeamID]*TeamState) []Standing {
	board := []Standing{}
	for _, id := range TeamIDs {
		t, ok := teams[id]
		if !ok || !t.Claimed() {
			continue
		}
		board = append(board, Standing{ID: id, Total: Total(t)})
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Total > board[j].Total
	})
	return board
}

// Resolve builds the final results from the current team counters.
func Resolve(teams map[TeamID]*TeamState, endedEarly bool) *Results {
	r := &Results{
		Leaderboard: Rank(teams),
		EndedEarly:  endedEarly,
	}
	if len(r.Leaderboard) > 0 {
		r.Winner = r.Leaderboard[0].ID
	}
	return r
}
