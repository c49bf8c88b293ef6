package refunds

import "intogame-backend/internal/stories/games"

// RefundRequest refunds a single payment. Amount nil means "everything the
// gateway still allows".
type RefundRequest struct {
	PaymentID string
	Amount    *float64
}

type RefundResult struct {
	RefundID  string
	PaymentID string
	Amount    float64
}

// CompletionRequest settles a finished or cancelled game.
type CompletionRequest struct {
	GameID     int64
	GameStatus games.Status
}

type RefundRecord struct {
	PaymentID string
	UserID    int64
	Amount    float64
}

type FailedRefund struct {
	PaymentID string
	UserID    int64
	Error     string
}

// CompletionSummary is always returned, even when every refund failed:
// partial success is the normal outcome of a batch over independent external
// calls.
type CompletionSummary struct {
	SuccessfulRefunds int
	FailedRefunds     int
	TotalRefunded     float64
	FullRefund        bool
	Refunds           []RefundRecord
	Failed            []FailedRefund
}
