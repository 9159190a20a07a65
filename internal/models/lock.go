package models

import "time"

// AppLock holds the PIN hash guarding the local data and the failed attempt counter.
type AppLock struct {
	PINHash        string    `db:"pin_hash" json:"-"`
	FailedAttempts int       `db:"failed_attempts" json:"failedAttempts"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
