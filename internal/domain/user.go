package domain

import "time"

// User represents a registered library member account.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
