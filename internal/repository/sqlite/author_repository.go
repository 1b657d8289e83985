package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library-server/internal/domain"
	"library-server/internal/repository"
)

const createAuthorsTable = `
CREATE TABLE IF NOT EXISTS authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	bio TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type AuthorRepository struct {
	db *sql.DB
}

func NewAuthorRepository(db *sql.DB) repository.AuthorRepository {
	return &AuthorRepository{db: db}
}

func (r *AuthorRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAuthorsTable); err != nil {
		return fmt.Errorf("create authors table: %w", err)
	}
	return nil
}

func (r *AuthorRepository) Create(ctx context.Context, author *domain.Author) (int64, error) {
	now := time.Now().UTC()
	author.CreatedAt = now
	author.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO authors (name, bio, created_at, updated_at)
VALUES (?, ?, ?, ?)`,
		author.Name,
		author.Bio,
		author.CreatedAt,
		author.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert author: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("author last insert id: %w", err)
	}
	author.ID = id
	return id, nil
}

func (r *AuthorRepository) GetByName(ctx context.Context, name string) (*domain.Author, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, bio, created_at, updated_at
FROM authors
WHERE name = ? COLLATE NOCASE
ORDER BY id ASC
LIMIT 1`,
		name,
	)
	return scanAuthor(row)
}

func (r *AuthorRepository) List(ctx context.Context) ([]domain.Author, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, bio, created_at, updated_at
FROM authors
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	authors := []domain.Author{}
	for rows.Next() {
		author, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, *author)
	}
	return authors, rows.Err()
}

func (r *AuthorRepository) Update(ctx context.Context, id int64, name, bio string) (*domain.Author, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE authors
SET name=?, bio=?, updated_at=?
WHERE id=?`,
		name,
		bio,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update author: %w", err)
	}
	if err := requireRow(res, "author"); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
SELECT id, name, bio, created_at, updated_at
FROM authors
WHERE id = ?`,
		id,
	)
	return scanAuthor(row)
}

func (r *AuthorRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM authors WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	return requireRow(res, "author")
}

func scanAuthor(scanner interface {
	Scan(dest ...any) error
}) (*domain.Author, error) {
	var author domain.Author
	if err := scanner.Scan(
		&author.ID,
		&author.Name,
		&author.Bio,
		&author.CreatedAt,
		&author.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("author: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan author: %w", err)
	}
	return &author, nil
}
