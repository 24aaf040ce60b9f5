// Package sqlite implements the user and book repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dmitrymomot/bookkeeper/pkg/auth"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/sanitizer"
	sqlitedb "github.com/dmitrymomot/bookkeeper/pkg/sqlite"
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

// Migrate brings the schema of db up to date.
func Migrate(ctx context.Context, db *sqlx.DB, log *slog.Logger) error {
	return sqlitedb.Migrate(ctx, db, Migrations(), log)
}

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *auth.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.Name, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return auth.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*auth.User, error) {
	var user auth.User
	if err := s.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

func (s *Store) CreateBook(ctx context.Context, book *books.Book) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO books (title, author, status, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		book.Title, book.Author, string(book.Status), book.OwnerID, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	book.ID, book.CreatedAt, book.UpdatedAt = id, now, now
	return nil
}

func (s *Store) GetBook(ctx context.Context, id int64) (*books.Book, error) {
	var book books.Book
	err := s.db.GetContext(ctx, &book,
		`SELECT id, title, author, status, owner_id, created_at, updated_at FROM books WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, books.ErrNotFound
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return &book, nil
}

func (s *Store) ListBooks(ctx context.Context, ownerID int64, titleContains string) ([]books.Book, error) {
	query := `SELECT id, title, author, status, owner_id, created_at, updated_at FROM books WHERE owner_id = ?`
	args := []any{ownerID}
	if titleContains != "" {
		query += ` AND title LIKE ? ESCAPE '\'`
		args = append(args, "%"+sanitizer.EscapeLike(titleContains)+"%")
	}
	query += ` ORDER BY id`

	list := []books.Book{}
	if err := s.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}
	return list, nil
}

func (s *Store) UpdateBook(ctx context.Context, book *books.Book) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, status = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		book.Title, book.Author, string(book.Status), now, book.ID, book.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	book.UpdatedAt = now
	return nil
}

func (s *Store) DeleteBook(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) CountBooksByStatus(ctx context.Context, ownerID int64) (map[books.Status]int, error) {
	var rows []struct {
		Status books.Status `db:"status"`
		Count  int          `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM books WHERE owner_id = ? GROUP BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	counts := make(map[books.Status]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return books.ErrNotFound
	}
	return nil
}
