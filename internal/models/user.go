package models

import "time"

// GuestLifetime is how long an auto-created guest account stays usable.
const GuestLifetime = 30 * 24 * time.Hour

type User struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Password       string     `json:"-" db:"password"`
	Email          *string    `json:"email,omitempty" db:"email"`
	FirstName      *string    `json:"firstName,omitempty" db:"first_name"`
	LastName       *string    `json:"lastName,omitempty" db:"last_name"`
	IsGuest        bool       `json:"isGuest" db:"is_guest"`
	GuestExpiresAt *time.Time `json:"guestExpiresAt,omitempty" db:"guest_expires_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// GuestExpired reports whether a guest account has passed its expiry.
func (u *User) GuestExpired(now time.Time) bool {
	return u.IsGuest && u.GuestExpiresAt != nil && now.After(*u.GuestExpiresAt)
}
