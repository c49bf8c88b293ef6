package webhook

import (
	"context"

	"intogame-backend/internal/stories/payments"
)

type (
	// Storage provides database operations for webhook ingestion
	Storage interface {
		GetPayment(ctx context.Context, criteria payments.GetCriteria) (*payments.Payment, error)
		UpsertPayment(ctx context.Context, params payments.UpsertParams) (*payments.Payment, error)
	}
)
