package books_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/bookkeeper/pkg/books"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateBook(ctx context.Context, book *books.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockStorage) GetBook(ctx context.Context, id int64) (*books.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*books.Book), args.Error(1)
}

func (m *MockStorage) ListBooks(ctx context.Context, ownerID int64, titleContains string) ([]books.Book, error) {
	args := m.Called(ctx, ownerID, titleContains)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]books.Book), args.Error(1)
}

func (m *MockStorage) UpdateBook(ctx context.Context, book *books.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockStorage) DeleteBook(ctx context.Context, id, ownerID int64) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockStorage) CountBooksByStatus(ctx context.Context, ownerID int64) (map[books.Status]int, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[books.Status]int), args.Error(1)
}
