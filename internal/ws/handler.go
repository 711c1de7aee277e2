package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/leaderboard-backend/internal/board"
	"github.com/DoyleJ11/leaderboard-backend/internal/hub"
	"github.com/DoyleJ11/leaderboard-backend/internal/logging"
	"github.com/DoyleJ11/leaderboard-backend/internal/types"
	pub "github.com/DoyleJ11/leaderboard-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler streams a board's snapshots to one renderer. Every publish is
// sent as a StateSnapshot message; a {"type":"Resync"} message from the
// client re-sends the current one.
func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	log := logging.OrNop(logger)

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		b, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if b == nil {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("board", code), zap.String("client", clientID))

		out := make(chan board.Snapshot, 8)
		if err := b.Join(r.Context(), clientID, out); err != nil {
			_ = conn.Close(websocket.StatusGoingAway, "board stopped")
			return
		}
		defer func() { _ = b.Leave(context.Background(), clientID) }()
		log.Debug("subscriber joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				if err := writeJSON(writeCtx, conn, types.SnapshotMessage(snap)); err != nil {
					log.Debug("snapshot write failed", zap.Error(err))
				}
			}
			// outbox closed: we left, were dropped as slow, or the board stopped
			_ = conn.Close(websocket.StatusGoingAway, "stream ended")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("subscriber left")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(r.Context(), conn, types.ErrorMessage("bad json"))
				continue
			}

			switch cm.Type {
			case pub.MsgResync:
				view, err := b.View(r.Context())
				if errors.Is(err, board.ErrStopped) {
					return
				}
				if err != nil {
					continue
				}
				_ = writeJSON(r.Context(), conn, types.SnapshotMessage(view.Snapshot))
			default:
				_ = writeJSON(r.Context(), conn, types.ErrorMessage("unknown type"))
			}
		}
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
