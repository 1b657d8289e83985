package service

import (
	"context"
	"strings"

	"library-server/internal/domain"
	"library-server/internal/repository"
)

// BookService coordinates catalog and lending operations backed by repositories.
type BookService interface {
	CreateBook(ctx context.Context, title, author string) (*domain.Book, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	UpdateBook(ctx context.Context, id int64, title, author string) (*domain.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	SetCover(ctx context.Context, id int64, key string) error

	Borrow(ctx context.Context, bookID, userID int64) (*domain.Book, error)
	Return(ctx context.Context, bookID int64) (*domain.Book, error)
	ListBorrowedBy(ctx context.Context, userID int64) ([]domain.Book, error)
	ListBorrowed(ctx context.Context) ([]domain.Book, error)
}

type bookService struct {
	books repository.BookRepository
	users repository.UserRepository
}

func NewBookService(books repository.BookRepository, users repository.UserRepository) BookService {
	return &bookService{
		books: books,
		users: users,
	}
}

func (s *bookService) CreateBook(ctx context.Context, title, author string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return nil, domain.Validation("title", "is required")
	}
	if author == "" {
		return nil, domain.Validation("author", "is required")
	}

	book := &domain.Book{Title: title, Author: author}
	if _, err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	return s.books.Get(ctx, id)
}

func (s *bookService) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	return s.books.List(ctx, filter)
}

func (s *bookService) UpdateBook(ctx context.Context, id int64, title, author string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return nil, domain.Validation("title", "is required")
	}
	if author == "" {
		return nil, domain.Validation("author", "is required")
	}
	return s.books.Update(ctx, id, title, author)
}

func (s *bookService) DeleteBook(ctx context.Context, id int64) error {
	return s.books.Delete(ctx, id)
}

func (s *bookService) SetCover(ctx context.Context, id int64, key string) error {
	return s.books.UpdateCoverKey(ctx, id, key)
}

// Borrow validates the borrower exists, then delegates the claim to the
// repository's conditional update. The availability check is never done here
// with a read; racing requests are decided by the store.
func (s *bookService) Borrow(ctx context.Context, bookID, userID int64) (*domain.Book, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.books.Borrow(ctx, bookID, userID)
}

func (s *bookService) Return(ctx context.Context, bookID int64) (*domain.Book, error) {
	return s.books.Return(ctx, bookID)
}

func (s *bookService) ListBorrowedBy(ctx context.Context, userID int64) ([]domain.Book, error) {
	return s.books.ListBorrowedBy(ctx, userID)
}

func (s *bookService) ListBorrowed(ctx context.Context) ([]domain.Book, error) {
	return s.books.ListBorrowed(ctx)
}
