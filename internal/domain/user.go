package domain

import "time"

// User is the profile snapshot of a Discord account that authorized the application.
// ID is the Discord snowflake and never changes; every other field is overwritten
// on each successful authorization.
type User struct {
	ID          string    `json:"id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	GlobalName  *string   `json:"global_name" db:"global_name"`
	Avatar      *string   `json:"avatar" db:"avatar"`
	Email       *string   `json:"email" db:"email"`
	Locale      *string   `json:"locale" db:"locale"`
	ConsentedAt time.Time `json:"consented_at" db:"consented_at"`
	LastLoginAt time.Time `json:"last_login_at" db:"last_login_at"`
}
