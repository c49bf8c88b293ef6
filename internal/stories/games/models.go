package games

import "time"

// Status — статус игры так, как он хранится на платформе.
type Status string

const (
	StatusActive      Status = "Активна"
	StatusCompleted   Status = "Завершена"
	StatusCancelled   Status = "Отменена"
	StatusRescheduled Status = "Перенесена"
)

// Game is a scheduled rental slot players reserve seats in. Price and
// PlayersMin are pointers: until the organizer fills them in, per-player
// pricing is undefined and no payment can be created.
type Game struct {
	ID           int64
	Name         string
	Price        *float64
	PlayersMin   *int64
	PlayersLimit *int64
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
