// Package books manages each user's private book list. Every operation
// is scoped to an owner; a book is never readable or writable by anyone else.
package books

import (
	"errors"
	"time"
)

// Status is the lending state of a book.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusLoaned    Status = "Loaned"
	StatusReading   Status = "Reading"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusAvailable, StatusLoaned, StatusReading}

var (
	ErrNotFound     = errors.New("book not found")
	ErrAccessDenied = errors.New("book belongs to another user")
)

type Book struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	Status    Status    `db:"status"`
	OwnerID   int64     `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Stats are the dashboard counters of one owner.
type Stats struct {
	Total     int
	Available int
	Loaned    int
	Reading   int
}
