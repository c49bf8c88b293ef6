package refunds

import (
	"context"
	"fmt"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"
)

// MockStorage - мок хранилища для тестов возвратов
type MockStorage struct {
	Games map[int64]*games.Game
	Users map[int64]*users.User

	Vote        *votes.Vote
	VotesByGame []*votes.Vote

	LocalPayment *payments.Payment
	PaymentList  []*payments.Payment

	UpdatedPayments   map[string]payments.UpdateParams
	UpdatedVoteStatus map[int64]votes.Status
	UpdatePaymentErr  error
	UpdateVoteErr     error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		Games:             map[int64]*games.Game{},
		Users:             map[int64]*users.User{},
		UpdatedPayments:   map[string]payments.UpdateParams{},
		UpdatedVoteStatus: map[int64]votes.Status{},
	}
}

func (m *MockStorage) GetGame(ctx context.Context, gameID int64) (*games.Game, error) {
	return m.Games[gameID], nil
}

func (m *MockStorage) GetVote(ctx context.Context, criteria votes.GetCriteria) (*votes.Vote, error) {
	return m.Vote, nil
}

func (m *MockStorage) ListVotes(ctx context.Context, criteria votes.ListCriteria) ([]*votes.Vote, error) {
	return m.VotesByGame, nil
}

func (m *MockStorage) UpdateVoteStatus(ctx context.Context, voteID int64, status votes.Status) error {
	if m.UpdateVoteErr != nil {
		return m.UpdateVoteErr
	}
	m.UpdatedVoteStatus[voteID] = status
	return nil
}

func (m *MockStorage) GetUser(ctx context.Context, userID int64) (*users.User, error) {
	return m.Users[userID], nil
}

func (m *MockStorage) GetPayment(ctx context.Context, criteria payments.GetCriteria) (*payments.Payment, error) {
	return m.LocalPayment, nil
}

func (m *MockStorage) ListPayments(ctx context.Context, criteria payments.ListCriteria) ([]*payments.Payment, error) {
	return m.PaymentList, nil
}

func (m *MockStorage) UpdatePayment(ctx context.Context, paymentID string, params payments.UpdateParams) (*payments.Payment, error) {
	if m.UpdatePaymentErr != nil {
		return nil, m.UpdatePaymentErr
	}
	m.UpdatedPayments[paymentID] = params
	return &payments.Payment{ID: paymentID}, nil
}

// MockGateway - мок клиента ЮKassa для возвратов
type MockGateway struct {
	Payments map[string]*yookassa.Payment
	GetErr   error

	RefundErrs     map[string]error
	RefundRequests []*yookassa.CreateRefundRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Payments:   map[string]*yookassa.Payment{},
		RefundErrs: map[string]error{},
	}
}

func (m *MockGateway) GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Payments[paymentID]
	if !ok {
		return nil, &yookassa.APIError{StatusCode: 404, Code: "not_found", Description: "Payment not found"}
	}
	return p, nil
}

func (m *MockGateway) CreateRefund(ctx context.Context, req *yookassa.CreateRefundRequest) (*yookassa.Refund, error) {
	m.RefundRequests = append(m.RefundRequests, req)
	if err := m.RefundErrs[req.PaymentID]; err != nil {
		return nil, err
	}
	return &yookassa.Refund{
		ID:        fmt.Sprintf("refund-%d", len(m.RefundRequests)),
		PaymentID: req.PaymentID,
		Status:    "succeeded",
		Amount:    req.Amount,
	}, nil
}
