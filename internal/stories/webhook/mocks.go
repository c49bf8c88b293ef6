package webhook

import (
	"context"

	"intogame-backend/internal/stories/payments"
)

// MockStorage - мок хранилища для тестов приёма вебхуков
type MockStorage struct {
	Payment *payments.Payment
	GetErr  error

	UpsertedParams []payments.UpsertParams
	UpsertErr      error
}

func (m *MockStorage) GetPayment(ctx context.Context, criteria payments.GetCriteria) (*payments.Payment, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Payment, nil
}

func (m *MockStorage) UpsertPayment(ctx context.Context, params payments.UpsertParams) (*payments.Payment, error) {
	m.UpsertedParams = append(m.UpsertedParams, params)
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}
	return &payments.Payment{ID: params.ID, Status: params.Status}, nil
}
