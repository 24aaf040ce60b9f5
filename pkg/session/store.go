package session

import "context"

// Store persists sessions by token.
type Store interface {
	// Save creates or replaces the session.
	Save(ctx context.Context, s *Session) error
	// Get returns ErrSessionNotFound for unknown tokens and ErrSessionExpired
	// for sessions past their ExpiresAt.
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
