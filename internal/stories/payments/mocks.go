package payments

import (
	"context"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"
)

// MockStorage - мок хранилища для тестов сценария создания платежа
type MockStorage struct {
	Vote *votes.Vote
	Game *games.Game
	User *users.User

	VoteErr error
	GameErr error
	UserErr error

	UpsertedParams []UpsertParams
	UpsertErr      error
}

func (m *MockStorage) GetVote(ctx context.Context, criteria votes.GetCriteria) (*votes.Vote, error) {
	if m.VoteErr != nil {
		return nil, m.VoteErr
	}
	return m.Vote, nil
}

func (m *MockStorage) GetGame(ctx context.Context, gameID int64) (*games.Game, error) {
	if m.GameErr != nil {
		return nil, m.GameErr
	}
	return m.Game, nil
}

func (m *MockStorage) GetUser(ctx context.Context, userID int64) (*users.User, error) {
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	return m.User, nil
}

func (m *MockStorage) UpsertPayment(ctx context.Context, params UpsertParams) (*Payment, error) {
	m.UpsertedParams = append(m.UpsertedParams, params)
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	return &Payment{ID: params.ID, Status: params.Status}, nil
}

// MockGateway - мок клиента ЮKassa
type MockGateway struct {
	Payment  *yookassa.Payment
	Err      error
	Requests []*yookassa.CreatePaymentRequest
}

func (m *MockGateway) CreatePayment(ctx context.Context, req *yookassa.CreatePaymentRequest) (*yookassa.Payment, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Payment, nil
}
