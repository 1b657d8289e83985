package domain

import "time"

// Author is a catalog author record, managed independently of the free-form
// author string on books.
type Author struct {
	ID        int64
	Name      string
	Bio       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
