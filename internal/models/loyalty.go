package models

import "time"

type LoyaltyAccount struct {
	UserID    int64     `json:"userId" db:"user_id"`
	Points    int64     `json:"points" db:"points"`
	Tier      string    `json:"tier" db:"-"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type Referral struct {
	ID             int64      `json:"id" db:"id"`
	ReferrerID     int64      `json:"referrerId" db:"referrer_id"`
	Code           string     `json:"code" db:"code"`
	ReferredUserID *int64     `json:"referredUserId,omitempty" db:"referred_user_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	RedeemedAt     *time.Time `json:"redeemedAt,omitempty" db:"redeemed_at"`
}
