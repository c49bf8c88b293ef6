package users

import "time"

// User is read-only for the payment flow: only the email is needed, to fill
// in the gateway receipt customer.
type User struct {
	ID        int64
	Email     *string
	CreatedAt time.Time
}
