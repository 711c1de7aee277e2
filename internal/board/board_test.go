package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
)

const interval = time.Second

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func abcRoster() []engine.Player {
	return []engine.Player{
		{ID: "A", DisplayName: "Alice", CurrentScore: 10},
		{ID: "B", DisplayName: "Bob", CurrentScore: 5},
		{ID: "C", DisplayName: "Cara", CurrentScore: 1},
	}
}

// B gains 20 while it still has its starting score, nobody else ever moves.
var bJumpsOnce = engine.DeltaFunc(func(p engine.Player, _ int64) int64 {
	if p.ID == "B" && p.CurrentScore == 5 {
		return 20
	}
	return 0
})

func newTestBoard(t *testing.T, src engine.DeltaSource) (*Board, *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	clock := clockwork.NewFakeClock()
	b := New(ctx, Options{
		Cycle:    engine.NewCycle(src, engine.DefaultScoreUpperBound, engine.DefaultSpacingUnit),
		Interval: interval,
		Clock:    clock,
		Logger:   zaptest.NewLogger(t),
	})
	t.Cleanup(func() {
		cancel()
		<-b.Done() // the loop logs on exit, keep it inside the test
	})
	return b, clock
}

func offsets(players []engine.Player) map[string]int {
	out := make(map[string]int, len(players))
	for _, p := range players {
		out[p.ID] = p.DisplayOffset
	}
	return out
}

func TestBoard_JoinBeforeStart_GetsIdleSnapshot(t *testing.T) {
	b, _ := newTestBoard(t, bJumpsOnce)

	out := make(chan Snapshot, 2)
	require.NoError(t, b.Join(context.Background(), "c1", out))

	first := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, Idle, first.State)
	assert.Empty(t, first.Ranked)
}

func TestBoard_Scenario_TickReranksAndMapsOffsets(t *testing.T) {
	b, clock := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()

	out := make(chan Snapshot, 4)
	require.NoError(t, b.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond) // idle snapshot

	require.NoError(t, b.Start(ctx, abcRoster()))
	started := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 1, started.Version)
	assert.Equal(t, Running, started.State)
	assert.Equal(t, []string{"A", "B", "C"}, engine.IDs(started.Ranked))
	assert.Equal(t, map[string]int{"A": 0, "B": 0, "C": 0}, offsets(started.Ranked))

	clock.Advance(interval)
	tick1 := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, 2, tick1.Version)
	assert.Equal(t, []string{"B", "A", "C"}, engine.IDs(tick1.Ranked))
	assert.Equal(t, map[string]int{"B": -75, "A": 75, "C": 0}, offsets(tick1.Ranked))
	assert.Equal(t, []string{"A", "B", "C"}, engine.IDs(tick1.Live), "live order is stable")

	clock.Advance(interval)
	tick2 := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, 3, tick2.Version)
	assert.Equal(t, offsets(tick1.Ranked), offsets(tick2.Ranked), "no rank change, no motion")
	for _, p := range tick2.Ranked {
		assert.Equal(t, p.CurrentScore, p.PreviousScore, "prev score tracks last tick for %s", p.ID)
	}

	view, err := b.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, tick1.Ranked, view.Reference, "reference is the pre-tick ranked order")
	assert.Equal(t, tick2.Ranked, view.Ranked)
}

func TestBoard_NoTicksBeforeStart(t *testing.T) {
	b, clock := newTestBoard(t, bJumpsOnce)

	out := make(chan Snapshot, 2)
	require.NoError(t, b.Join(context.Background(), "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	clock.Advance(5 * interval)
	recvNoSnapshot(t, out, 50*time.Millisecond)
}

func TestBoard_Start_RejectsMalformedRoster(t *testing.T) {
	b, _ := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()

	err := b.Start(ctx, []engine.Player{{ID: "A"}, {ID: "A"}})
	require.ErrorIs(t, err, engine.ErrDuplicateID)

	err = b.Start(ctx, []engine.Player{{DisplayName: "ghost"}})
	require.ErrorIs(t, err, engine.ErrMissingID)

	view, err := b.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, Idle, view.State)

	// still startable with a good roster
	require.NoError(t, b.Start(ctx, abcRoster()))
}

func TestBoard_Start_Twice(t *testing.T) {
	b, _ := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()

	require.NoError(t, b.Start(ctx, abcRoster()))
	assert.ErrorIs(t, b.Start(ctx, abcRoster()), ErrAlreadyRunning)
}

func TestBoard_Start_InvalidInterval(t *testing.T) {
	b := New(context.Background(), Options{
		Cycle:    engine.NewCycle(bJumpsOnce, engine.DefaultScoreUpperBound, engine.DefaultSpacingUnit),
		Interval: 0,
		Clock:    clockwork.NewFakeClock(),
	})
	defer b.Stop()

	err := b.Start(context.Background(), abcRoster())
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestBoard_FailedTick_IsSkipped(t *testing.T) {
	calls := 0
	flaky := engine.DeltaFunc(func(engine.Player, int64) int64 {
		calls++
		if calls == 1 {
			return -1 // first tick fails on its first player
		}
		return 1
	})
	b, clock := newTestBoard(t, flaky)
	ctx := context.Background()

	out := make(chan Snapshot, 4)
	require.NoError(t, b.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	require.NoError(t, b.Start(ctx, abcRoster()))
	started := recvSnapshot(t, out, 100*time.Millisecond)

	clock.Advance(interval)
	recvNoSnapshot(t, out, 50*time.Millisecond)

	view, err := b.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.Version, view.Version)
	assert.Equal(t, started.Ranked, view.Ranked)

	clock.Advance(interval)
	next := recvSnapshot(t, out, 500*time.Millisecond)
	assert.Equal(t, started.Version+1, next.Version)
}

func TestBoard_DropSlowClient(t *testing.T) {
	b, _ := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()

	clientOut := make(chan Snapshot, 1)
	require.NoError(t, b.Join(ctx, "slow", clientOut)) // idle snapshot fills the buffer
	require.NoError(t, b.Start(ctx, abcRoster()))

	view, err := b.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients, "slow client should be dropped")

	_ = recvSnapshot(t, clientOut, 100*time.Millisecond)
	_, open := <-clientOut
	assert.False(t, open, "dropped client outbox should be closed")
}

func TestBoard_Leave_ClosesOutbox(t *testing.T) {
	b, _ := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()

	out := make(chan Snapshot, 2)
	require.NoError(t, b.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	require.NoError(t, b.Leave(ctx, "c1"))
	view, err := b.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients)

	_, open := <-out
	assert.False(t, open)
}

func TestBoard_Stop_NoFurtherTicks(t *testing.T) {
	b, clock := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()

	out := make(chan Snapshot, 4)
	require.NoError(t, b.Join(ctx, "c1", out))
	_ = recvSnapshot(t, out, 100*time.Millisecond)
	require.NoError(t, b.Start(ctx, abcRoster()))
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	b.Stop()
	b.Stop() // idempotent

	clock.Advance(interval)
	recvNoSnapshot(t, out, 50*time.Millisecond)

	_, err := b.View(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, b.Start(ctx, abcRoster()), ErrStopped)
}

func TestBoard_JoinAfterStop_Rejected(t *testing.T) {
	b, _ := newTestBoard(t, bJumpsOnce)
	ctx := context.Background()
	b.Stop()

	for i := 0; i < 40; i++ {
		out := make(chan Snapshot, 1)
		require.ErrorIs(t, b.Join(ctx, "late", out), ErrStopped)
		assert.ErrorIs(t, b.Start(ctx, abcRoster()), ErrStopped)
	}
}

// Joins racing a stop either fail or see their outbox closed, never hang.
func TestBoard_JoinRacingStop_AcceptedOutboxCloses(t *testing.T) {
	for round := 0; round < 20; round++ {
		b, _ := newTestBoard(t, bJumpsOnce)
		ctx := context.Background()

		const joiners = 16
		outs := make([]chan Snapshot, joiners)
		errs := make([]error, joiners)
		var wg sync.WaitGroup
		for i := range outs {
			outs[i] = make(chan Snapshot, 4)
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = b.Join(ctx, fmt.Sprintf("c%d", i), outs[i])
			}(i)
		}
		b.Stop()
		wg.Wait()

		for i, out := range outs {
			if errs[i] != nil {
				require.ErrorIs(t, errs[i], ErrStopped)
				continue
			}
			waitClosed(t, out, i)
		}
	}
}

func waitClosed(t *testing.T, out chan Snapshot, i int) {
	t.Helper()
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joiner %d was accepted but its outbox was never closed", i)
		}
	}
}

func TestBoard_ParentCancel_Stops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := New(ctx, Options{
		Cycle:    engine.NewCycle(bJumpsOnce, engine.DefaultScoreUpperBound, engine.DefaultSpacingUnit),
		Interval: interval,
		Clock:    clockwork.NewFakeClock(),
	})

	cancel()
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("board did not stop after parent cancel")
	}

	_, err := b.View(context.Background())
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "unknown", State(9).String())
}
