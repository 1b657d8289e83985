package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"library-server/internal/domain"
	"library-server/internal/repository"
)

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	borrowed_by INTEGER NULL REFERENCES users(id),
	cover_key TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) repository.BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBooksTable); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (int64, error) {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO books (title, author, borrowed_by, cover_key, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		book.Title,
		book.Author,
		nullID(book.BorrowedBy),
		book.CoverKey,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("book last insert id: %w", err)
	}
	book.ID = id
	return id, nil
}

func (r *BookRepository) Get(ctx context.Context, id int64) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, author, borrowed_by, cover_key, created_at, updated_at
FROM books
WHERE id = ?`,
		id,
	)
	return scanBook(row)
}

func (r *BookRepository) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Title != "" {
		clauses = append(clauses, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.Author != "" {
		clauses = append(clauses, "author LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Author+"%")
	}
	if filter.Available != nil {
		if *filter.Available {
			clauses = append(clauses, "borrowed_by IS NULL")
		} else {
			clauses = append(clauses, "borrowed_by IS NOT NULL")
		}
	}

	query := `
SELECT id, title, author, borrowed_by, cover_key, created_at, updated_at
FROM books`
	if len(clauses) > 0 {
		query += "\nWHERE " + strings.Join(clauses, " AND ")
	}
	query += "\nORDER BY id ASC"

	return r.queryBooks(ctx, query, args...)
}

func (r *BookRepository) Update(ctx context.Context, id int64, title, author string) (*domain.Book, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET title=?, author=?, updated_at=?
WHERE id=?`,
		title,
		author,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	if err := requireRow(res, "book"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *BookRepository) UpdateCoverKey(ctx context.Context, id int64, key string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET cover_key=?, updated_at=?
WHERE id=?`,
		key,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update book cover: %w", err)
	}
	return requireRow(res, "book")
}

func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return requireRow(res, "book")
}

// Borrow claims the book for userID with a single conditional update. Two
// concurrent borrow attempts cannot both match the IS NULL predicate, so at
// most one request wins; the loser sees zero rows affected and is told why.
func (r *BookRepository) Borrow(ctx context.Context, bookID, userID int64) (*domain.Book, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET borrowed_by=?, updated_at=?
WHERE id=? AND borrowed_by IS NULL`,
		userID,
		time.Now().UTC(),
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("borrow book: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("borrow rows affected: %w", err)
	}
	if aff == 0 {
		book, err := r.Get(ctx, bookID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("book %d: %w", book.ID, domain.ErrAlreadyBorrowed)
	}

	return r.Get(ctx, bookID)
}

// Return releases the book, again as a single conditional update so a
// concurrent return cannot clear the same loan twice.
func (r *BookRepository) Return(ctx context.Context, bookID int64) (*domain.Book, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET borrowed_by=NULL, updated_at=?
WHERE id=? AND borrowed_by IS NOT NULL`,
		time.Now().UTC(),
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("return book: %w", err)
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("return rows affected: %w", err)
	}
	if aff == 0 {
		book, err := r.Get(ctx, bookID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("book %d: %w", book.ID, domain.ErrNotBorrowed)
	}

	return r.Get(ctx, bookID)
}

func (r *BookRepository) ListBorrowedBy(ctx context.Context, userID int64) ([]domain.Book, error) {
	return r.queryBooks(ctx, `
SELECT id, title, author, borrowed_by, cover_key, created_at, updated_at
FROM books
WHERE borrowed_by = ?
ORDER BY id ASC`,
		userID,
	)
}

func (r *BookRepository) ListBorrowed(ctx context.Context) ([]domain.Book, error) {
	return r.queryBooks(ctx, `
SELECT id, title, author, borrowed_by, cover_key, created_at, updated_at
FROM books
WHERE borrowed_by IS NOT NULL
ORDER BY id ASC`)
}

func (r *BookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

func scanBook(scanner interface {
	Scan(dest ...any) error
}) (*domain.Book, error) {
	var (
		book       domain.Book
		borrowedBy sql.NullInt64
	)
	if err := scanner.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&borrowedBy,
		&book.CoverKey,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	if borrowedBy.Valid {
		id := borrowedBy.Int64
		book.BorrowedBy = &id
	}
	return &book, nil
}

func requireRow(res sql.Result, entity string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if aff == 0 {
		return fmt.Errorf("%s: %w", entity, domain.ErrNotFound)
	}
	return nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
