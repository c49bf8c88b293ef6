package votes

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Vote is a player's reservation of Quantity seats in a game. The payment is
// attached to the vote, not to the user, so one person can pay for several
// seats at once.
type Vote struct {
	ID        int64
	GameID    int64
	UserID    int64
	Quantity  int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GetCriteria struct {
	ID     *int64
	UserID *int64
	GameID *int64
	Status *Status
}

type ListCriteria struct {
	GameID *int64
	Status *Status
}
