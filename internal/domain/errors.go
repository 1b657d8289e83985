package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced user, book or author does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken indicates a signup attempt with an email already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAlreadyBorrowed indicates a borrow attempt on a book that is on loan.
	ErrAlreadyBorrowed = errors.New("book already borrowed")
	// ErrNotBorrowed indicates a return attempt on a book that is on the shelf.
	ErrNotBorrowed = errors.New("book is not borrowed")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
