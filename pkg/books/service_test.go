package books_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

const (
	ana int64 = 1
	bia int64 = 2
)

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("forces Available and trims input", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("CreateBook", mock.Anything, mock.MatchedBy(func(b *books.Book) bool {
			return b.Title == "Dune" && b.Author == "Frank Herbert" &&
				b.Status == books.StatusAvailable && b.OwnerID == ana
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*books.Book).ID = 10
		}).Return(nil)

		book, err := books.NewService(storage, nil).Create(context.Background(), ana, books.Input{
			Title:  "  Dune ",
			Author: "Frank   Herbert",
			Status: "Loaned",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(10), book.ID)
		assert.Equal(t, books.StatusAvailable, book.Status)
		storage.AssertExpectations(t)
	})

	t.Run("requires title and author", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		_, err := books.NewService(storage, nil).Create(context.Background(), ana, books.Input{Title: " ", Author: ""})

		verrs := validator.ExtractValidationErrors(err)
		require.NotNil(t, verrs)
		assert.True(t, verrs.Has("title"))
		assert.True(t, verrs.Has("author"))
		storage.AssertNotCalled(t, "CreateBook", mock.Anything, mock.Anything)
	})

	t.Run("limits field length", func(t *testing.T) {
		t.Parallel()

		_, err := books.NewService(&MockStorage{}, nil).Create(context.Background(), ana, books.Input{
			Title:  strings.Repeat("x", 256),
			Author: "A",
		})
		assert.True(t, validator.ExtractValidationErrors(err).Has("title"))
	})
}

func TestService_Get(t *testing.T) {
	t.Parallel()

	storage := &MockStorage{}
	storage.On("GetBook", mock.Anything, int64(5)).Return(&books.Book{ID: 5, OwnerID: bia}, nil)
	storage.On("GetBook", mock.Anything, int64(404)).Return(nil, books.ErrNotFound)
	storage.On("GetBook", mock.Anything, int64(500)).Return(nil, errors.New("db down"))
	svc := books.NewService(storage, nil)

	book, err := svc.Get(context.Background(), bia, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), book.ID)

	_, err = svc.Get(context.Background(), ana, 5)
	assert.ErrorIs(t, err, books.ErrAccessDenied)

	_, err = svc.Get(context.Background(), ana, 404)
	assert.ErrorIs(t, err, books.ErrNotFound)

	_, err = svc.Get(context.Background(), ana, 500)
	require.Error(t, err)
	assert.NotErrorIs(t, err, books.ErrNotFound)
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	t.Run("any status transition", func(t *testing.T) {
		t.Parallel()

		for _, from := range books.Statuses {
			for _, to := range books.Statuses {
				storage := &MockStorage{}
				storage.On("GetBook", mock.Anything, int64(1)).Return(&books.Book{ID: 1, OwnerID: ana, Status: from}, nil)
				storage.On("UpdateBook", mock.Anything, mock.MatchedBy(func(b *books.Book) bool {
					return b.Status == to && b.OwnerID == ana
				})).Return(nil)

				book, err := books.NewService(storage, nil).Update(context.Background(), ana, 1, books.Input{
					Title: "Dune", Author: "Herbert", Status: string(to),
				})
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, book.Status)
			}
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetBook", mock.Anything, int64(1)).Return(&books.Book{ID: 1, OwnerID: ana}, nil)

		_, err := books.NewService(storage, nil).Update(context.Background(), ana, 1, books.Input{
			Title: "Dune", Author: "Herbert", Status: "Lost",
		})
		assert.True(t, validator.ExtractValidationErrors(err).Has("status"))
		storage.AssertNotCalled(t, "UpdateBook", mock.Anything, mock.Anything)
	})

	t.Run("other owner is denied", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetBook", mock.Anything, int64(1)).Return(&books.Book{ID: 1, OwnerID: bia}, nil)

		_, err := books.NewService(storage, nil).Update(context.Background(), ana, 1, books.Input{
			Title: "Mine", Author: "Me", Status: "Loaned",
		})
		assert.ErrorIs(t, err, books.ErrAccessDenied)
		storage.AssertNotCalled(t, "UpdateBook", mock.Anything, mock.Anything)
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("owner deletes", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetBook", mock.Anything, int64(3)).Return(&books.Book{ID: 3, OwnerID: ana}, nil)
		storage.On("DeleteBook", mock.Anything, int64(3), ana).Return(nil)

		require.NoError(t, books.NewService(storage, nil).Delete(context.Background(), ana, 3))
		storage.AssertExpectations(t)
	})

	t.Run("other owner is denied and nothing is deleted", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetBook", mock.Anything, int64(3)).Return(&books.Book{ID: 3, OwnerID: bia}, nil)

		err := books.NewService(storage, nil).Delete(context.Background(), ana, 3)
		assert.ErrorIs(t, err, books.ErrAccessDenied)
		storage.AssertNotCalled(t, "DeleteBook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing book", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		storage.On("GetBook", mock.Anything, int64(9)).Return(nil, books.ErrNotFound)

		err := books.NewService(storage, nil).Delete(context.Background(), ana, 9)
		assert.ErrorIs(t, err, books.ErrNotFound)
	})
}

func TestService_ListAndStats(t *testing.T) {
	t.Parallel()

	storage := &MockStorage{}
	storage.On("ListBooks", mock.Anything, ana, "dune messiah").Return([]books.Book{{ID: 1, OwnerID: ana}}, nil)
	storage.On("CountBooksByStatus", mock.Anything, ana).Return(map[books.Status]int{
		books.StatusAvailable: 2,
		books.StatusReading:   1,
	}, nil)
	svc := books.NewService(storage, nil)

	list, err := svc.List(context.Background(), ana, "  dune\tmessiah ")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	stats, err := svc.Stats(context.Background(), ana)
	require.NoError(t, err)
	assert.Equal(t, books.Stats{Total: 3, Available: 2, Loaned: 0, Reading: 1}, stats)
	assert.Equal(t, stats.Total, stats.Available+stats.Loaned+stats.Reading)
}

func TestService_ListNormalizesQuery(t *testing.T) {
	t.Parallel()

	storage := &MockStorage{}
	storage.On("ListBooks", mock.Anything, ana, "Os Lus\u00edadas").Return([]books.Book{{ID: 7, OwnerID: ana}}, nil)
	svc := books.NewService(storage, nil)

	// "i" followed by a combining acute accent
	list, err := svc.List(context.Background(), ana, " Os Lusi\u0301adas ")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	storage.AssertExpectations(t)
}
