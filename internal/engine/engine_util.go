package engine

import "slices"

// NewRoster copies the loaded roster, zeroing offsets and aligning
// PreviousScore with CurrentScore so the first render has nothing to animate.
func NewRoster(players []Player) []Player {
	out := slices.Clone(players)
	for i := range out {
		out[i].PreviousScore = out[i].CurrentScore
		out[i].DisplayOffset = 0
	}
	return out
}

func IndexOf(players []Player, id string) int {
	return slices.IndexFunc(players, func(p Player) bool { return p.ID == id })
}

func IDs(players []Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// IndexByID maps each player id to its position in players.
func IndexByID(players []Player) map[string]int {
	idx := make(map[string]int, len(players))
	for i, p := range players {
		idx[p.ID] = i
	}
	return idx
}
