package reconcile

import (
	"context"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/stories/payments"
)

type (
	// Storage lists local payments that may have missed their webhook
	Storage interface {
		ListPayments(ctx context.Context, criteria payments.ListCriteria) ([]*payments.Payment, error)
	}

	// Gateway polls the authoritative payment state
	Gateway interface {
		GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
	}

	// StatusApplier mirrors a gateway payment into local state the same way
	// the webhook path does
	StatusApplier interface {
		Apply(ctx context.Context, payment *yookassa.Payment) error
	}
)
