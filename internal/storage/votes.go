package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"intogame-backend/internal/stories/votes"
)

const votesTable = "votes"

var voteRowFields = fields(voteRow{})

type voteRow struct {
	ID        int64     `db:"id"`
	GameID    int64     `db:"game_id"`
	UserID    int64     `db:"user_id"`
	Quantity  int64     `db:"quantity"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (v voteRow) ToModel() *votes.Vote {
	return &votes.Vote{
		ID:        v.ID,
		GameID:    v.GameID,
		UserID:    v.UserID,
		Quantity:  v.Quantity,
		Status:    votes.Status(v.Status),
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func (s *storageImpl) GetVote(ctx context.Context, criteria votes.GetCriteria) (*votes.Vote, error) {
	query := s.stmpBuilder().
		Select(voteRowFields).
		From(votesTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}
	if criteria.UserID != nil {
		query = query.Where(sq.Eq{"user_id": *criteria.UserID})
	}
	if criteria.GameID != nil {
		query = query.Where(sq.Eq{"game_id": *criteria.GameID})
	}
	if criteria.Status != nil {
		query = query.Where(sq.Eq{"status": string(*criteria.Status)})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var v voteRow
	err = s.db.GetContext(ctx, &v, q, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return v.ToModel(), nil
}

func (s *storageImpl) ListVotes(ctx context.Context, criteria votes.ListCriteria) ([]*votes.Vote, error) {
	query := s.stmpBuilder().
		Select(voteRowFields).
		From(votesTable).
		OrderBy("created_at ASC")

	if criteria.GameID != nil {
		query = query.Where(sq.Eq{"game_id": *criteria.GameID})
	}
	if criteria.Status != nil {
		query = query.Where(sq.Eq{"status": string(*criteria.Status)})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []voteRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*votes.Vote, 0, len(rows))
	for _, v := range rows {
		result = append(result, v.ToModel())
	}

	return result, nil
}

func (s *storageImpl) UpdateVoteStatus(ctx context.Context, voteID int64, status votes.Status) error {
	q, args, err := s.stmpBuilder().
		Update(votesTable).
		Set("status", string(status)).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": voteID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}
