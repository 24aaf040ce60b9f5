package books

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/sanitizer"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

const maxFieldLength = 255

// Storage persists books. Ownership is checked by the service; storage
// only filters by owner where the method says so.
type Storage interface {
	// CreateBook assigns book.ID and timestamps.
	CreateBook(ctx context.Context, book *Book) error
	// GetBook yields ErrNotFound for unknown ids.
	GetBook(ctx context.Context, id int64) (*Book, error)
	// ListBooks returns the owner's books ordered by id. A non-empty
	// titleContains keeps only titles containing it, ignoring case.
	ListBooks(ctx context.Context, ownerID int64, titleContains string) ([]Book, error)
	// UpdateBook writes title, author and status of the book with
	// book.ID and book.OwnerID, yielding ErrNotFound when none matches.
	UpdateBook(ctx context.Context, book *Book) error
	// DeleteBook yields ErrNotFound when no book has both id and ownerID.
	DeleteBook(ctx context.Context, id, ownerID int64) error
	CountBooksByStatus(ctx context.Context, ownerID int64) (map[Status]int, error)
}

type Service struct {
	storage Storage
	logger  *slog.Logger
}

func NewService(storage Storage, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{storage: storage, logger: log}
}

// Input is the user-editable part of a book.
type Input struct {
	Title  string
	Author string
	Status string
}

func (in Input) normalize() Input {
	return Input{
		Title:  sanitizer.Text(in.Title),
		Author: sanitizer.Text(in.Author),
		Status: sanitizer.Trim(in.Status),
	}
}

func (in Input) rules() []validator.Rule {
	return []validator.Rule{
		validator.Required("title", in.Title),
		validator.MaxLen("title", in.Title, maxFieldLength),
		validator.Required("author", in.Author),
		validator.MaxLen("author", in.Author, maxFieldLength),
	}
}

func (s *Service) List(ctx context.Context, ownerID int64, query string) ([]Book, error) {
	list, err := s.storage.ListBooks(ctx, ownerID, sanitizer.Text(query))
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return list, nil
}

// Create stores a new book for ownerID. New books are always Available.
func (s *Service) Create(ctx context.Context, ownerID int64, in Input) (*Book, error) {
	in = in.normalize()
	if err := validator.Apply(in.rules()...); err != nil {
		return nil, err
	}

	book := &Book{
		Title:   in.Title,
		Author:  in.Author,
		Status:  StatusAvailable,
		OwnerID: ownerID,
	}
	if err := s.storage.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.logger.InfoContext(ctx, "book created", logger.UserID(ownerID), logger.BookID(book.ID), logger.Component("books"))
	return book, nil
}

// Get returns the book when ownerID owns it, ErrNotFound when it does not
// exist and ErrAccessDenied when someone else owns it.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Book, error) {
	book, err := s.storage.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	if book.OwnerID != ownerID {
		s.logger.WarnContext(ctx, "book access denied",
			logger.UserID(ownerID),
			logger.BookID(id),
			logger.Component("books"),
		)
		return nil, ErrAccessDenied
	}
	return book, nil
}

// Update replaces title, author and status. Any status may follow any other.
func (s *Service) Update(ctx context.Context, ownerID, id int64, in Input) (*Book, error) {
	book, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	in = in.normalize()
	rules := append(in.rules(), validator.InList("status", Status(in.Status), Statuses))
	if err := validator.Apply(rules...); err != nil {
		return nil, err
	}

	book.Title = in.Title
	book.Author = in.Author
	book.Status = Status(in.Status)
	if err := s.storage.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	s.logger.InfoContext(ctx, "book updated",
		logger.UserID(ownerID),
		logger.BookID(id),
		slog.String("status", string(book.Status)),
		logger.Component("books"),
	)
	return book, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.storage.DeleteBook(ctx, id, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}

	s.logger.InfoContext(ctx, "book deleted", logger.UserID(ownerID), logger.BookID(id), logger.Component("books"))
	return nil
}

// Stats counts the owner's books per status. Total is the sum of the
// per-status counts of the same grouped read.
func (s *Service) Stats(ctx context.Context, ownerID int64) (Stats, error) {
	counts, err := s.storage.CountBooksByStatus(ctx, ownerID)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count books: %w", err)
	}

	st := Stats{
		Available: counts[StatusAvailable],
		Loaned:    counts[StatusLoaned],
		Reading:   counts[StatusReading],
	}
	st.Total = st.Available + st.Loaned + st.Reading
	return st, nil
}
