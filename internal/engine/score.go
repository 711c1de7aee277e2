package engine

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// DeltaSource decides how much a player's score grows on a tick. upper is
// the updater's exclusive bound and is always positive.
type DeltaSource interface {
	Delta(p Player, upper int64) int64
}

type DeltaFunc func(p Player, upper int64) int64

func (f DeltaFunc) Delta(p Player, upper int64) int64 { return f(p, upper) }

// RandomDelta draws uniformly from [0, upper).
type RandomDelta struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDelta seeds a PCG source. A zero seed is replaced by the current time.
func NewRandomDelta(seed uint64) *RandomDelta {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomDelta{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Delta panics if upper is not positive, like rand.Int64N.
func (r *RandomDelta) Delta(_ Player, upper int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int64N(upper)
}

type ScoreUpdater struct {
	Source     DeltaSource
	UpperBound int64
}

// Update returns a copy of players, in the same order, with each score moved
// into PreviousScore and grown by a delta in [0, UpperBound).
func (u ScoreUpdater) Update(players []Player) ([]Player, error) {
	if u.UpperBound <= 0 {
		return nil, ErrInvalidUpperBound
	}

	out := make([]Player, len(players))
	for i, p := range players {
		d := u.Source.Delta(p, u.UpperBound)
		if d < 0 || d >= u.UpperBound {
			return nil, fmt.Errorf("%w: %d for %q", ErrDeltaOutOfRange, d, p.ID)
		}
		p.PreviousScore = p.CurrentScore
		p.CurrentScore += d
		out[i] = p
	}
	return out, nil
}
