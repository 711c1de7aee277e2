package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`

	SpacingUnit     int           `env:"SPACING_UNIT" default:"75"`
	TickInterval    time.Duration `env:"TICK_INTERVAL" default:"1s"`
	ScoreUpperBound int64         `env:"SCORE_UPPER_BOUND" default:"10000"`
	ScoreSeed       uint64        `env:"SCORE_SEED" default:"0"`

	RosterPath   string `env:"ROSTER_PATH" default:"data/roster.json"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DefaultBoard string `env:"DEFAULT_BOARD" default:"main"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.TickInterval <= 0 {
		return errors.New("TICK_INTERVAL must be positive")
	}
	if cfg.ScoreUpperBound <= 0 {
		return errors.New("SCORE_UPPER_BOUND must be positive")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}
	if cfg.DatabaseURL == "" && cfg.RosterPath == "" {
		return errors.New("either ROSTER_PATH or DATABASE_URL is required")
	}
	return nil
}
