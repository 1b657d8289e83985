package repository

import (
	"context"

	"library-server/internal/domain"
)

// BookRepository exposes persistence operations for the book catalog and
// the lending ledger. Borrow and Return are conditional single-statement
// updates so that concurrent requests cannot both claim the same book.
type BookRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, book *domain.Book) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Book, error)
	List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	Update(ctx context.Context, id int64, title, author string) (*domain.Book, error)
	UpdateCoverKey(ctx context.Context, id int64, key string) error
	Delete(ctx context.Context, id int64) error

	Borrow(ctx context.Context, bookID, userID int64) (*domain.Book, error)
	Return(ctx context.Context, bookID int64) (*domain.Book, error)
	ListBorrowedBy(ctx context.Context, userID int64) ([]domain.Book, error)
	ListBorrowed(ctx context.Context) ([]domain.Book, error)
}
