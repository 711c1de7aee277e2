package board

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
	"github.com/DoyleJ11/leaderboard-backend/internal/logging"
	"github.com/DoyleJ11/leaderboard-backend/internal/metrics"
)

var ErrAlreadyRunning = errors.New("board already started")
var ErrStopped = errors.New("board stopped")
var ErrInvalidInterval = errors.New("tick interval must be positive")

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Msg interface{ isBoardMsg() }

type Start struct {
	Roster []engine.Player
	Reply  chan error
}

func (Start) isBoardMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isBoardMsg() {}

type Leave struct{ ClientID string }

func (Leave) isBoardMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isBoardMsg() {}

// Snapshot is what subscribers receive after every publish. The slices are
// copies owned by the receiver.
type Snapshot struct {
	Version int
	State   State
	Live    []engine.Player
	Ranked  []engine.Player
}

type View struct {
	Snapshot
	Reference  []engine.Player // baseline the last tick diffed against
	NumClients int
}

type Options struct {
	Cycle    engine.Cycle
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
}

type Board struct {
	inbox    chan Msg
	cycle    engine.Cycle
	interval time.Duration
	clock    clockwork.Clock
	log      *zap.Logger

	state     State
	live      []engine.Player
	reference []engine.Player
	ranked    []engine.Player
	version   int
	ticker    clockwork.Ticker
	clients   map[string]chan Snapshot

	// mu guards closed. Senders hold it for reading across the inbox send,
	// so once shutdown sets closed every accepted message is in the inbox.
	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, opts Options) *Board {
	ctx, cancel := context.WithCancel(parent)

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	b := &Board{
		inbox:    make(chan Msg, 64),
		cycle:    opts.Cycle,
		interval: opts.Interval,
		clock:    clock,
		log:      logging.OrNop(opts.Logger),
		state:    Idle,
		clients:  make(map[string]chan Snapshot),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Board) loop() {
	defer close(b.done)

	for {
		var tickC <-chan time.Time
		if b.ticker != nil {
			tickC = b.ticker.Chan()
		}

		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case <-tickC:
			b.tick()

		case m := <-b.inbox:
			switch msg := m.(type) {
			case Start:
				msg.Reply <- b.start(msg.Roster)

			case Join:
				if old, ok := b.clients[msg.ClientID]; ok {
					if old != msg.Outbox {
						close(old)
					}
					b.drop(msg.ClientID)
				}
				// Register client + send current snapshot immediately
				b.clients[msg.ClientID] = msg.Outbox
				metrics.Subscribers.Inc()
				select {
				case msg.Outbox <- b.snapshot():
				default:
					close(msg.Outbox)
					b.drop(msg.ClientID)
				}

			case Leave:
				if ch, ok := b.clients[msg.ClientID]; ok {
					close(ch)
					b.drop(msg.ClientID)
				}

			case GetState:
				msg.Reply <- View{
					Snapshot:   b.snapshot(),
					Reference:  slices.Clone(b.reference),
					NumClients: len(b.clients),
				}
			}
		}
	}
}

func (b *Board) start(roster []engine.Player) error {
	switch b.state {
	case Running:
		return ErrAlreadyRunning
	case Stopped:
		return ErrStopped
	}
	if b.interval <= 0 {
		return ErrInvalidInterval
	}
	if err := engine.ValidateRoster(roster); err != nil {
		return err
	}

	initial := engine.NewRoster(roster)
	b.live = initial
	b.reference = initial
	b.ranked = initial
	b.ticker = b.clock.NewTicker(b.interval)
	b.state = Running

	b.log.Info("board started", zap.Int("players", len(initial)), zap.Duration("interval", b.interval))
	b.publish()
	return nil
}

// tick runs one cycle. The pre-tick ranked order becomes the reference
// before anything is mutated, so offsets are always diffed against the
// state the renderer last saw.
func (b *Board) tick() {
	began := b.clock.Now()

	reference := b.ranked
	next, err := b.cycle.Step(reference)
	if err != nil {
		metrics.TicksTotal.WithLabelValues(metrics.ResultError).Inc()
		b.log.Warn("tick failed", zap.Int("version", b.version), zap.Error(err))
		return
	}

	b.reference = reference
	b.ranked = next

	metrics.TicksTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.TickDuration.Observe(b.clock.Since(began).Seconds())
	metrics.RankChangesTotal.Add(float64(engine.RankChanges(next, reference)))

	b.publish()
}

func (b *Board) publish() {
	b.version++
	snap := b.snapshot()
	b.log.Debug("publishing snapshot", zap.Int("version", snap.Version), zap.Strings("ranking", engine.IDs(snap.Ranked)))
	b.broadcast(snap)
}

func (b *Board) snapshot() Snapshot {
	return Snapshot{
		Version: b.version,
		State:   b.state,
		Live:    slices.Clone(b.live),
		Ranked:  slices.Clone(b.ranked),
	}
}

func (b *Board) broadcast(snap Snapshot) {
	for id, ch := range b.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			b.log.Info("dropping slow subscriber", zap.String("client", id))
			close(ch)
			b.drop(id)
		}
	}
}

func (b *Board) drop(id string) {
	delete(b.clients, id)
	metrics.Subscribers.Dec()
}

func (b *Board) shutdown() {
	b.cancel()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	if b.ticker != nil {
		b.ticker.Stop()
		b.ticker = nil
	}
	b.state = Stopped
	b.drainInbox()
	for id, ch := range b.clients {
		close(ch) // Tell client no more snapshots
		b.drop(id)
	}
	b.log.Info("board stopped", zap.Int("version", b.version))
}

// drainInbox answers messages accepted before the board closed. Pending
// joiners get their outbox closed so their readers finish.
func (b *Board) drainInbox() {
	for {
		select {
		case m := <-b.inbox:
			switch msg := m.(type) {
			case Start:
				msg.Reply <- ErrStopped
			case Join:
				if b.clients[msg.ClientID] != msg.Outbox {
					close(msg.Outbox)
				}
			}
		default:
			return
		}
	}
}

// Done is closed once the board has stopped processing messages.
func (b *Board) Done() <-chan struct{} { return b.done }

func (b *Board) send(ctx context.Context, m Msg) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStopped
	}
	select {
	case b.inbox <- m:
		return nil
	case <-b.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start loads the roster and arms the ticker. The board stays Idle on error.
func (b *Board) Start(ctx context.Context, roster []engine.Player) error {
	reply := make(chan error, 1)
	if err := b.send(ctx, Start{Roster: roster, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Board) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := b.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-b.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (b *Board) Join(ctx context.Context, clientID string, outbox chan Snapshot) error {
	return b.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

func (b *Board) Leave(ctx context.Context, clientID string) error {
	return b.send(ctx, Leave{ClientID: clientID})
}

// Stop cancels the ticker and waits for the loop to exit. Safe to call more
// than once.
func (b *Board) Stop() {
	b.cancel()
	<-b.done
}
