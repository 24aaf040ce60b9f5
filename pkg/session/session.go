// Package session keeps the authenticated user of a browser between
// requests. The token travels in an encrypted cookie; the session itself
// lives in a Store (in-memory or Redis).
package session

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID             uuid.UUID `json:"id"`
	Token          string    `json:"token"`
	UserID         int64     `json:"user_id"`
	UserName       string    `json:"user_name"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != 0
}

func (s *Session) IsExpired() bool {
	return s != nil && !time.Now().Before(s.ExpiresAt)
}
