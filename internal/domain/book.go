package domain

import "time"

// Book is a catalog entry. BorrowedBy is nil while the book sits on the
// shelf and holds the borrower's user id while it is on loan. A book never
// has more than one borrower.
type Book struct {
	ID         int64
	Title      string
	Author     string
	BorrowedBy *int64
	CoverKey   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Available reports whether the book can currently be borrowed.
func (b *Book) Available() bool {
	return b.BorrowedBy == nil
}

// BookFilter narrows catalog listings. Zero values mean "no constraint".
type BookFilter struct {
	Title     string
	Author    string
	Available *bool
}
