package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/leaderboard-backend/internal/board"
	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
	"github.com/DoyleJ11/leaderboard-backend/internal/logging"
	"github.com/DoyleJ11/leaderboard-backend/internal/metrics"
)

var ErrCodeTaken = errors.New("board code already in use")
var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type Created struct {
	Board *board.Board
	Err   error
}

// CreateBoard builds a board and starts it with Roster.
type CreateBoard struct {
	Code   string
	Roster []engine.Player
	Reply  chan Created
}

type GetBoard struct {
	Code  string
	Reply chan *board.Board
}

type RemoveBoard struct {
	Code  string
	Reply chan bool
}

type ShutdownHub struct{}

func (CreateBoard) isHubMsg() {}
func (GetBoard) isHubMsg()    {}
func (RemoveBoard) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// BoardFactory builds an idle board bound to ctx.
type BoardFactory func(ctx context.Context, code string) *board.Board

type Hub struct {
	inbox    chan HubMsg
	boards   map[string]*board.Board
	newBoard BoardFactory
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, newBoard BoardFactory, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		boards:   make(map[string]*board.Board),
		newBoard: newBoard,
		log:      logging.OrNop(logger),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

// BoardOptions returns a factory that builds every board from the same options.
func BoardOptions(opts board.Options) BoardFactory {
	return func(ctx context.Context, code string) *board.Board {
		o := opts
		o.Logger = logging.OrNop(opts.Logger).With(zap.String("board", code))
		return board.New(ctx, o)
	}
}

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateBoard:
				if h.boards[msg.Code] != nil {
					msg.Reply <- Created{Err: ErrCodeTaken}
					break
				}
				b := h.newBoard(h.ctx, msg.Code)
				if err := b.Start(h.ctx, msg.Roster); err != nil {
					b.Stop()
					msg.Reply <- Created{Err: err}
					break
				}
				h.boards[msg.Code] = b
				metrics.BoardsActive.Inc()
				h.log.Info("board created", zap.String("board", msg.Code), zap.Int("players", len(msg.Roster)))
				msg.Reply <- Created{Board: b}

			case GetBoard:
				msg.Reply <- h.boards[msg.Code] // May be nil

			case RemoveBoard:
				b, ok := h.boards[msg.Code]
				if ok {
					b.Stop()
					delete(h.boards, msg.Code)
					metrics.BoardsActive.Dec()
					h.log.Info("board removed", zap.String("board", msg.Code))
				}
				if msg.Reply != nil {
					msg.Reply <- ok
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, b := range h.boards {
		b.Stop()
		delete(h.boards, code)
		metrics.BoardsActive.Dec()
	}
	h.cancel()
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Create(ctx context.Context, code string, roster []engine.Player) (*board.Board, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateBoard{Code: code, Roster: roster, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case c := <-reply:
		return c.Board, c.Err
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns nil when no board has the code.
func (h *Hub) Get(ctx context.Context, code string) (*board.Board, error) {
	reply := make(chan *board.Board, 1)
	if err := h.send(ctx, GetBoard{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case b := <-reply:
		return b, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove stops the board and reports whether it existed.
func (h *Hub) Remove(ctx context.Context, code string) (bool, error) {
	reply := make(chan bool, 1)
	if err := h.send(ctx, RemoveBoard{Code: code, Reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-h.done:
		return false, ErrHubClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Shutdown stops every board and waits for the hub loop to exit.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
	<-h.done
}
