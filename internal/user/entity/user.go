package entity

import "time"

// User represents a row in the `users` table. Virtual users are placeholders
// standing in for a counterparty who has not joined or has left; they have
// no credentials and are owned by the real user they were created for.
type User struct {
	ID                  string     `db:"id" json:"id"`
	Email               *string    `db:"email" json:"email,omitempty"`
	Name                string     `db:"name" json:"name"`
	Picture             string     `db:"picture" json:"picture"`
	Virtual             bool       `db:"is_virtual" json:"virtual"`
	OwnerID             *string    `db:"owner_id" json:"-"`
	PasswordHash        *string    `db:"password_hash" json:"-"`
	PasswordAlgo        *string    `db:"password_algo" json:"-"`
	Status              string     `db:"status" json:"-"` // active / locked / disabled
	LoginFailedAttempts int        `db:"login_failed_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"-"`
	Version             int64      `db:"version" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"-"`
	UpdatedAt           time.Time  `db:"updated_at" json:"-"`
}

// Public is the projection of a user that other users may see.
type Public struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Virtual bool   `json:"virtual"`
}

func (u *User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Picture: u.Picture, Virtual: u.Virtual}
}
