package roster

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/leaderboard-backend/internal/engine"
	"github.com/DoyleJ11/leaderboard-backend/internal/logging"
)

type playerRow struct {
	UserID      string `gorm:"column:user_id;primaryKey"`
	DisplayName string `gorm:"column:display_name;not null;default:''"`
	Picture     string `gorm:"column:picture;not null;default:''"`
	Score       int64  `gorm:"column:score;not null;default:0"`
	Position    int    `gorm:"column:position;not null;default:0"`
}

func (playerRow) TableName() string { return "roster_players" }

// Store keeps the roster in Postgres. Only the starting roster lives here,
// scores produced by ticks are never written back.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open roster db: %w", err)
	}
	return &Store{db: db, log: logging.OrNop(logger)}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&playerRow{})
}

func (s *Store) ordered(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Order("position, user_id")
}

func (s *Store) Load(ctx context.Context) ([]engine.Player, error) {
	var rows []playerRow
	if err := s.ordered(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	players := toPlayers(rows)
	if err := engine.ValidateRoster(players); err != nil {
		return nil, err
	}
	s.log.Debug("roster loaded from db", zap.Int("players", len(players)))
	return players, nil
}

// Save upserts players, keeping their slice order as the roster order.
func (s *Store) Save(ctx context.Context, players []engine.Player) error {
	if err := engine.ValidateRoster(players); err != nil {
		return err
	}
	if len(players) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(fromPlayers(players)).Error
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&playerRow{}).Count(&n).Error
	return n, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toPlayers(rows []playerRow) []engine.Player {
	players := make([]engine.Player, len(rows))
	for i, r := range rows {
		players[i] = engine.Player{
			ID:            r.UserID,
			DisplayName:   r.DisplayName,
			Avatar:        r.Picture,
			CurrentScore:  r.Score,
			PreviousScore: r.Score,
		}
	}
	return players
}

func fromPlayers(players []engine.Player) []playerRow {
	rows := make([]playerRow, len(players))
	for i, p := range players {
		rows[i] = playerRow{
			UserID:      p.ID,
			DisplayName: p.DisplayName,
			Picture:     p.Avatar,
			Score:       p.CurrentScore,
			Position:    i,
		}
	}
	return rows
}
