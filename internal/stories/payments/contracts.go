package payments

import (
	"context"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"
)

type (
	// Storage provides database operations for the payment creation flow
	Storage interface {
		GetVote(ctx context.Context, criteria votes.GetCriteria) (*votes.Vote, error)
		GetGame(ctx context.Context, gameID int64) (*games.Game, error)
		GetUser(ctx context.Context, userID int64) (*users.User, error)
		UpsertPayment(ctx context.Context, params UpsertParams) (*Payment, error)
	}

	// Gateway provides the YooKassa payment-creation operation
	Gateway interface {
		CreatePayment(ctx context.Context, req *yookassa.CreatePaymentRequest) (*yookassa.Payment, error)
	}
)
