package domain

import "time"

// User represents a registered account. Credits gate route creation for
// non-premium users; the balance is only ever decremented through the
// metered create-route path.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsPremium    bool
	Credits      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
