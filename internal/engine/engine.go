package engine

import (
	"errors"
	"fmt"
)

var ErrMissingID = errors.New("roster entry has no id")
var ErrDuplicateID = errors.New("duplicate roster id")
var ErrDeltaOutOfRange = errors.New("score delta out of range")
var ErrInvalidUpperBound = errors.New("score upper bound must be positive")

const (
	DefaultSpacingUnit     = 75
	DefaultScoreUpperBound = 10000
)

type Player struct {
	ID            string
	DisplayName   string
	Avatar        string
	PreviousScore int64
	CurrentScore  int64
	DisplayOffset int
}

// Cycle is one tick of the leaderboard: update scores, re-rank, then map
// offsets against the ordering that was in effect before the update.
type Cycle struct {
	Updater     ScoreUpdater
	SpacingUnit int
}

func NewCycle(src DeltaSource, upperBound int64, spacing int) Cycle {
	return Cycle{
		Updater:     ScoreUpdater{Source: src, UpperBound: upperBound},
		SpacingUnit: spacing,
	}
}

// Step runs one cycle against reference, the ranked order as of the end of
// the previous tick. reference is not modified.
func (c Cycle) Step(reference []Player) ([]Player, error) {
	updated, err := c.Updater.Update(reference)
	if err != nil {
		return nil, err
	}

	ranked := Rank(updated)
	return MapPositions(ranked, reference, c.SpacingUnit), nil
}

// ValidateRoster rejects rosters with empty or repeated ids.
func ValidateRoster(players []Player) error {
	seen := make(map[string]struct{}, len(players))
	for i, p := range players {
		if p.ID == "" {
			return fmt.Errorf("%w (entry %d)", ErrMissingID, i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}
