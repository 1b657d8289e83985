package service

import (
	"context"
	"strings"

	"library-server/internal/domain"
	"library-server/internal/repository"
)

// AuthorService manages author records.
type AuthorService interface {
	CreateAuthor(ctx context.Context, name, bio string) (*domain.Author, error)
	GetAuthorByName(ctx context.Context, name string) (*domain.Author, error)
	ListAuthors(ctx context.Context) ([]domain.Author, error)
	UpdateAuthor(ctx context.Context, id int64, name, bio string) (*domain.Author, error)
	DeleteAuthor(ctx context.Context, id int64) error
}

type authorService struct {
	authors repository.AuthorRepository
}

func NewAuthorService(authors repository.AuthorRepository) AuthorService {
	return &authorService{authors: authors}
}

func (s *authorService) CreateAuthor(ctx context.Context, name, bio string) (*domain.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation("name", "is required")
	}

	author := &domain.Author{Name: name, Bio: strings.TrimSpace(bio)}
	if _, err := s.authors.Create(ctx, author); err != nil {
		return nil, err
	}
	return author, nil
}

func (s *authorService) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	return s.authors.GetByName(ctx, name)
}

func (s *authorService) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	return s.authors.List(ctx)
}

func (s *authorService) UpdateAuthor(ctx context.Context, id int64, name, bio string) (*domain.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation("name", "is required")
	}
	return s.authors.Update(ctx, id, name, strings.TrimSpace(bio))
}

func (s *authorService) DeleteAuthor(ctx context.Context, id int64) error {
	return s.authors.Delete(ctx, id)
}
