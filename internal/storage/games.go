package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"intogame-backend/internal/stories/games"
)

const gamesTable = "games"

var gameRowFields = fields(gameRow{})

type gameRow struct {
	ID           int64     `db:"id"`
	GameName     string    `db:"game_name"`
	GamePrice    *float64  `db:"game_price"`
	PlayersMin   *int64    `db:"players_min"`
	PlayersLimit *int64    `db:"players_limit"`
	GameStatus   string    `db:"game_status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (g gameRow) ToModel() *games.Game {
	return &games.Game{
		ID:           g.ID,
		Name:         g.GameName,
		Price:        g.GamePrice,
		PlayersMin:   g.PlayersMin,
		PlayersLimit: g.PlayersLimit,
		Status:       games.Status(g.GameStatus),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func (s *storageImpl) GetGame(ctx context.Context, gameID int64) (*games.Game, error) {
	q, args, err := s.stmpBuilder().
		Select(gameRowFields).
		From(gamesTable).
		Where(sq.Eq{"id": gameID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var g gameRow
	err = s.db.GetContext(ctx, &g, q, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return g.ToModel(), nil
}
