package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/leaderboard-backend/internal/board"
	"github.com/DoyleJ11/leaderboard-backend/internal/config"
	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
	"github.com/DoyleJ11/leaderboard-backend/internal/httpapi"
	"github.com/DoyleJ11/leaderboard-backend/internal/hub"
	"github.com/DoyleJ11/leaderboard-backend/internal/logging"
	"github.com/DoyleJ11/leaderboard-backend/internal/roster"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := rosterSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	h := hub.NewHub(ctx, hub.BoardOptions(board.Options{
		Cycle:    engine.NewCycle(engine.NewRandomDelta(cfg.ScoreSeed), cfg.ScoreUpperBound, cfg.SpacingUnit),
		Interval: cfg.TickInterval,
		Clock:    clockwork.NewRealClock(),
		Logger:   log,
	}), log)
	defer h.Shutdown()

	if cfg.DefaultBoard != "" {
		players, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("load default roster: %w", err)
		}
		if _, err := h.Create(ctx, cfg.DefaultBoard, players); err != nil {
			return fmt.Errorf("start default board: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.SetupRoutes(h, src, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// rosterSource prefers Postgres when DATABASE_URL is set. An empty table is
// seeded from the roster file.
func rosterSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (roster.Source, func(), error) {
	file := roster.FileSource{Path: cfg.RosterPath}
	if cfg.DatabaseURL == "" {
		log.Info("using roster file", zap.String("path", cfg.RosterPath))
		return file, func() {}, nil
	}

	store, err := roster.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() { _ = store.Close() }

	if err := store.Migrate(ctx); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("migrate roster table: %w", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("count roster rows: %w", err)
	}
	if n == 0 && cfg.RosterPath != "" {
		players, err := file.Load(ctx)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		if err := store.Save(ctx, players); err != nil {
			closeStore()
			return nil, nil, err
		}
		log.Info("seeded roster table", zap.Int("players", len(players)))
	}

	log.Info("using roster database")
	return store, closeStore, nil
}
