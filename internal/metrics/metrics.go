package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// TicksTotal counts board ticks by outcome
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_ticks_total",
			Help: "Total leaderboard ticks by result",
		},
		[]string{"result"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leaderboard_tick_duration_seconds",
			Help:    "Time spent updating, ranking and mapping offsets for one tick",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// RankChangesTotal counts players that moved to a different slot on a tick
	RankChangesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leaderboard_rank_changes_total",
			Help: "Total number of rank position changes across all ticks",
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaderboard_subscribers",
			Help: "Current number of snapshot subscribers across all boards",
		},
	)

	BoardsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leaderboard_boards_active",
			Help: "Current number of boards registered in the hub",
		},
	)
)
