package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"intogame-backend/internal/stories/users"
)

const usersTable = "users"

var userRowFields = fields(userRow{})

type userRow struct {
	ID        int64     `db:"id"`
	Email     *string   `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

func (u userRow) ToModel() *users.User {
	return &users.User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func (s *storageImpl) GetUser(ctx context.Context, userID int64) (*users.User, error) {
	q, args, err := s.stmpBuilder().
		Select(userRowFields).
		From(usersTable).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var u userRow
	err = s.db.GetContext(ctx, &u, q, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return u.ToModel(), nil
}
