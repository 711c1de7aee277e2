package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/leaderboard-backend/internal/board"
	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
	"github.com/DoyleJ11/leaderboard-backend/internal/hub"
	"github.com/DoyleJ11/leaderboard-backend/internal/roster"
	"github.com/DoyleJ11/leaderboard-backend/internal/types"
)

const maxCodeAttempts = 8

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateBoard loads a fresh roster and starts a board under a new code.
func CreateBoard(h *hub.Hub, src roster.Source, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := src.Load(r.Context())
		if err != nil {
			log.Error("roster load failed", zap.Error(err))
			writeError(w, rosterStatus(err), "failed to load roster")
			return
		}

		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}

			_, err = h.Create(r.Context(), code, players)
			if errors.Is(err, hub.ErrCodeTaken) {
				log.Debug("collision on code, regenerating", zap.String("board", code))
				continue
			}
			if err != nil {
				writeError(w, rosterStatus(err), err.Error())
				return
			}

			writeJSON(w, http.StatusCreated, struct {
				Code string `json:"code"`
			}{Code: code})
			return
		}
		writeError(w, http.StatusServiceUnavailable, "no free board code")
	}
}

func GetBoard(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := lookup(w, r, h)
		if !ok {
			return
		}

		view, err := b.View(r.Context())
		if err != nil {
			writeError(w, http.StatusGone, "board stopped")
			return
		}
		writeJSON(w, http.StatusOK, types.NewSnapshot(view.Snapshot))
	}
}

func DeleteBoard(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := h.Remove(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "hub unavailable")
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "board not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) (*board.Board, bool) {
	b, err := h.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "hub unavailable")
		return nil, false
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "board not found")
		return nil, false
	}
	return b, true
}

func rosterStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrMissingID),
		errors.Is(err, engine.ErrDuplicateID),
		errors.Is(err, roster.ErrMalformed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorMessage(msg))
}
