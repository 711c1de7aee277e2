package engine

import (
	"cmp"
	"slices"
)

// Rank orders players by CurrentScore, highest first. Equal scores keep
// their input order.
func Rank(players []Player) []Player {
	ranked := slices.Clone(players)
	slices.SortStableFunc(ranked, func(a, b Player) int {
		return cmp.Compare(b.CurrentScore, a.CurrentScore)
	})
	return ranked
}

// MapPositions carries each player's offset over from reference and shifts
// it by the number of slots the player moved. Players missing from
// reference keep their offset.
func MapPositions(newOrder, reference []Player, spacing int) []Player {
	idx := IndexByID(reference)

	out := make([]Player, len(newOrder))
	for i, p := range newOrder {
		if j, ok := idx[p.ID]; ok {
			p.DisplayOffset = reference[j].DisplayOffset + (i-j)*spacing
		}
		out[i] = p
	}
	return out
}

// RankChanges counts players whose index differs between the two orders.
func RankChanges(newOrder, reference []Player) int {
	idx := IndexByID(reference)

	moved := 0
	for i, p := range newOrder {
		if j, ok := idx[p.ID]; ok && i != j {
			moved++
		}
	}
	return moved
}
