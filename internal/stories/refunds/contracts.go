package refunds

import (
	"context"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"
)

type (
	// Storage provides database operations for the refund flows
	Storage interface {
		GetGame(ctx context.Context, gameID int64) (*games.Game, error)
		GetVote(ctx context.Context, criteria votes.GetCriteria) (*votes.Vote, error)
		ListVotes(ctx context.Context, criteria votes.ListCriteria) ([]*votes.Vote, error)
		UpdateVoteStatus(ctx context.Context, voteID int64, status votes.Status) error
		GetUser(ctx context.Context, userID int64) (*users.User, error)
		GetPayment(ctx context.Context, criteria payments.GetCriteria) (*payments.Payment, error)
		ListPayments(ctx context.Context, criteria payments.ListCriteria) ([]*payments.Payment, error)
		UpdatePayment(ctx context.Context, paymentID string, params payments.UpdateParams) (*payments.Payment, error)
	}

	// Gateway provides the YooKassa operations the refund flows need. The
	// local payment cache is never trusted for refund eligibility.
	Gateway interface {
		GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
		CreateRefund(ctx context.Context, req *yookassa.CreateRefundRequest) (*yookassa.Refund, error)
	}
)
