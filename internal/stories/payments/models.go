package payments

import "time"

// Status mirrors the gateway's terminal statuses; the local row is a cache of
// the gateway state, reconciled by webhook and by the reconcile worker.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
)

// Payment is the local record of a gateway payment. ID is the gateway's
// payment id — the natural key, never generated locally.
type Payment struct {
	ID                        string
	VoteID                    int64
	Amount                    float64
	Currency                  string
	Status                    Status
	PaymentMethod             *string
	CardLast4                 *string
	RefundedAmount            *float64
	CancellationReasonCode    *string
	CancellationReasonMessage *string
	PaidAt                    *time.Time
	CanceledAt                *time.Time
	RefundedAt                *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// UpsertParams writes a payment row keyed by the gateway id. Nil optional
// fields keep whatever the existing row already has, so a repeated webhook
// delivery overwrites instead of duplicating.
type UpsertParams struct {
	ID                        string
	VoteID                    *int64
	Amount                    *float64
	Currency                  *string
	Status                    Status
	PaymentMethod             *string
	CardLast4                 *string
	PaidAt                    *time.Time
	CanceledAt                *time.Time
	CancellationReasonCode    *string
	CancellationReasonMessage *string
}

type UpdateParams struct {
	Status         *Status
	RefundedAmount *float64
	RefundedAt     *time.Time
}

type GetCriteria struct {
	ID     *string
	VoteID *int64
}

type ListCriteria struct {
	VoteIDs       []int64
	Status        *Status
	CreatedBefore *time.Time
}

// CreateRequest is the create-payment API call after decoding.
type CreateRequest struct {
	UserID      int64
	GameID      int64
	Amount      float64
	Description string
	ReturnURL   string
}

// CreateResult is what the frontend needs to redirect the user to pay.
type CreateResult struct {
	PaymentID       string
	Status          string
	Paid            bool
	ConfirmationURL string
	Quantity        int64
	PricePerPlayer  float64
}
