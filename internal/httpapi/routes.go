package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/leaderboard-backend/internal/hub"
	"github.com/DoyleJ11/leaderboard-backend/internal/logging"
	"github.com/DoyleJ11/leaderboard-backend/internal/roster"
	"github.com/DoyleJ11/leaderboard-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, src roster.Source, logger *zap.Logger) http.Handler {
	log := logging.OrNop(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(h, log))

	r.Route("/boards", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Post("/", CreateBoard(h, src, log))
		r.Get("/{code}", GetBoard(h))
		r.Delete("/{code}", DeleteBoard(h))
	})
	return r
}
