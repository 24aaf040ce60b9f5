// Package storetest holds the behaviour every user and book repository
// must share, run against each engine from its own tests.
package storetest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/pkg/auth"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
)

// Store is a repository serving both services.
type Store interface {
	auth.Storage
	books.Storage
}

// Run exercises s. It creates its own users with unique emails, so s may
// be shared with other data.
func Run(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	newUser := func(t *testing.T, name string) *auth.User {
		t.Helper()
		u := &auth.User{
			Name:         name,
			Email:        strings.ToLower(name) + "-" + uuid.NewString() + "@x.com",
			PasswordHash: []byte("$2a$04$hash"),
			CreatedAt:    time.Now().UTC(),
		}
		require.NoError(t, s.CreateUser(ctx, u))
		require.NotZero(t, u.ID)
		return u
	}

	newBook := func(t *testing.T, owner int64, title string) *books.Book {
		t.Helper()
		b := &books.Book{Title: title, Author: "Author", Status: books.StatusAvailable, OwnerID: owner}
		require.NoError(t, s.CreateBook(ctx, b))
		require.NotZero(t, b.ID)
		return b
	}

	t.Run("users", func(t *testing.T) {
		u := newUser(t, "Ana")

		byEmail, err := s.GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.Equal(t, "Ana", byEmail.Name)
		assert.Equal(t, u.PasswordHash, byEmail.PasswordHash)

		_, err = s.GetUserByEmail(ctx, "nobody-"+uuid.NewString()+"@x.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)

		dup := &auth.User{Name: "Other", Email: u.Email, PasswordHash: []byte("x"), CreatedAt: time.Now()}
		assert.ErrorIs(t, s.CreateUser(ctx, dup), auth.ErrEmailAlreadyExists)
	})

	t.Run("books crud", func(t *testing.T) {
		owner := newUser(t, "Owner")
		b := newBook(t, owner.ID, "Dune")

		got, err := s.GetBook(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dune", got.Title)
		assert.Equal(t, books.StatusAvailable, got.Status)
		assert.Equal(t, owner.ID, got.OwnerID)
		assert.False(t, got.CreatedAt.IsZero())

		got.Title, got.Status = "Dune Messiah", books.StatusLoaned
		require.NoError(t, s.UpdateBook(ctx, got))

		updated, err := s.GetBook(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", updated.Title)
		assert.Equal(t, books.StatusLoaned, updated.Status)

		require.NoError(t, s.DeleteBook(ctx, b.ID, owner.ID))
		_, err = s.GetBook(ctx, b.ID)
		assert.ErrorIs(t, err, books.ErrNotFound)
		assert.ErrorIs(t, s.DeleteBook(ctx, b.ID, owner.ID), books.ErrNotFound)
	})

	t.Run("writes are scoped to the owner", func(t *testing.T) {
		a := newUser(t, "A")
		b := newUser(t, "B")
		book := newBook(t, b.ID, "B's book")

		assert.ErrorIs(t, s.DeleteBook(ctx, book.ID, a.ID), books.ErrNotFound)

		hijack := *book
		hijack.OwnerID = a.ID
		hijack.Title = "stolen"
		assert.ErrorIs(t, s.UpdateBook(ctx, &hijack), books.ErrNotFound)

		still, err := s.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, "B's book", still.Title)
	})

	t.Run("list filters by owner and title", func(t *testing.T) {
		a := newUser(t, "Lister")
		other := newUser(t, "Other")
		first := newBook(t, a.ID, "Dune")
		newBook(t, a.ID, "Emma")
		third := newBook(t, a.ID, "Children of DUNE")
		newBook(t, a.ID, "100% Pure")
		newBook(t, other.ID, "Dune")

		all, err := s.ListBooks(ctx, a.ID, "")
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, first.ID, all[0].ID, "ordered by id")

		dune, err := s.ListBooks(ctx, a.ID, "dune")
		require.NoError(t, err)
		require.Len(t, dune, 2)
		assert.Equal(t, first.ID, dune[0].ID)
		assert.Equal(t, third.ID, dune[1].ID)

		percent, err := s.ListBooks(ctx, a.ID, "%")
		require.NoError(t, err)
		require.Len(t, percent, 1, "wildcards match literally")
		assert.Equal(t, "100% Pure", percent[0].Title)

		none, err := s.ListBooks(ctx, a.ID, "zzz")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("counts by status", func(t *testing.T) {
		u := newUser(t, "Counter")
		newBook(t, u.ID, "one")
		loaned := newBook(t, u.ID, "two")
		loaned.Status = books.StatusLoaned
		require.NoError(t, s.UpdateBook(ctx, loaned))

		counts, err := s.CountBooksByStatus(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[books.StatusAvailable])
		assert.Equal(t, 1, counts[books.StatusLoaned])
		assert.Equal(t, 0, counts[books.StatusReading])

		empty, err := s.CountBooksByStatus(ctx, newUser(t, "Empty").ID)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("book requires an existing owner", func(t *testing.T) {
		orphan := &books.Book{Title: "x", Author: "y", Status: books.StatusAvailable, OwnerID: 987654321}
		assert.Error(t, s.CreateBook(ctx, orphan))
	})
}
