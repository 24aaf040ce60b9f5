// Package postgres implements the user and book repositories on PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/bookkeeper/pkg/auth"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/pg"
	"github.com/dmitrymomot/bookkeeper/pkg/sanitizer"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations is the goose migration set of this schema.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate brings the schema behind pool up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, Migrations(), cfg, log)
}

const (
	userColumns = `id, name, email, password_hash, created_at`
	bookColumns = `id, title, author, status, owner_id, created_at, updated_at`
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	).Scan(&user.ID)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	rows, _ := s.pool.Query(ctx, query, arg)
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[auth.User])
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (s *Store) CreateBook(ctx context.Context, book *books.Book) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO books (title, author, status, owner_id) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		book.Title, book.Author, string(book.Status), book.OwnerID,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (s *Store) GetBook(ctx context.Context, id int64) (*books.Book, error) {
	rows, _ := s.pool.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	book, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[books.Book])
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, books.ErrNotFound
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return book, nil
}

func (s *Store) ListBooks(ctx context.Context, ownerID int64, titleContains string) ([]books.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE owner_id = $1`
	args := []any{ownerID}
	if titleContains != "" {
		query += ` AND title ILIKE $2 ESCAPE '\'`
		args = append(args, "%"+sanitizer.EscapeLike(titleContains)+"%")
	}
	query += ` ORDER BY id`

	rows, _ := s.pool.Query(ctx, query, args...)
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[books.Book])
	if err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	if list == nil {
		list = []books.Book{}
	}
	return list, nil
}

func (s *Store) UpdateBook(ctx context.Context, book *books.Book) error {
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx,
		`UPDATE books SET title = $1, author = $2, status = $3, updated_at = now()
		 WHERE id = $4 AND owner_id = $5 RETURNING updated_at`,
		book.Title, book.Author, string(book.Status), book.ID, book.OwnerID,
	).Scan(&updatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return books.ErrNotFound
		}
		return fmt.Errorf("update book: %w", err)
	}
	book.UpdatedAt = updatedAt
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id, ownerID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return books.ErrNotFound
	}
	return nil
}

func (s *Store) CountBooksByStatus(ctx context.Context, ownerID int64) (map[books.Status]int, error) {
	rows, _ := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM books WHERE owner_id = $1 GROUP BY status`, ownerID)

	counts := make(map[books.Status]int)
	var (
		status string
		n      int
	)
	_, err := pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		counts[books.Status(status)] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	return counts, nil
}
