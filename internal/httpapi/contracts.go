package httpapi

import (
	"context"

	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/refunds"
)

type (
	PaymentCreator interface {
		CreatePayment(ctx context.Context, req payments.CreateRequest) (*payments.CreateResult, error)
	}

	WebhookProcessor interface {
		Process(ctx context.Context, body []byte) error
	}

	Refunder interface {
		RefundPayment(ctx context.Context, req refunds.RefundRequest) (*refunds.RefundResult, error)
		RefundGameCompletion(ctx context.Context, req refunds.CompletionRequest) (*refunds.CompletionSummary, error)
	}
)
