package repository

import (
	"context"

	"library-server/internal/domain"
)

// AuthorRepository defines persistence operations for Author records.
type AuthorRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, author *domain.Author) (int64, error)
	GetByName(ctx context.Context, name string) (*domain.Author, error)
	List(ctx context.Context) ([]domain.Author, error)
	Update(ctx context.Context, id int64, name, bio string) (*domain.Author, error)
	Delete(ctx context.Context, id int64) error
}
