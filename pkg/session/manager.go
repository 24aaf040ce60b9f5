package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Manager struct {
	store     Store
	transport Transport
	config    Config
}

type Option func(*Manager)

func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.config = cfg }
}

// New panics without a transport since no session can reach the client.
func New(transport Transport, opts ...Option) *Manager {
	if transport == nil {
		panic("session: transport is required")
	}

	m := &Manager{transport: transport, config: DefaultConfig()}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}
	return m
}

// Get loads the session referenced by the request token.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}

	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.IsExpired() {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Authenticate starts a fresh session for the user. Any session the
// request already carried is destroyed, so a token issued before login
// never becomes an authenticated one.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, userName string) (*Session, error) {
	if userID == 0 {
		return nil, ErrInvalidSession
	}

	if old, err := m.transport.GetToken(r); err == nil {
		_ = m.store.Delete(ctx, old)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:             uuid.New(),
		Token:          token,
		UserID:         userID,
		UserName:       userName,
		ExpiresAt:      m.config.expiry(now, now),
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	if err := m.transport.SetToken(w, s.Token, time.Until(s.ExpiresAt)); err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return nil, err
	}
	return s, nil
}

// Destroy removes the session from the store and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer m.transport.ClearToken(w)

	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil
	}
	return m.store.Delete(ctx, token)
}

// touch slides the idle deadline forward once per ActivityUpdateThreshold.
func (m *Manager) touch(ctx context.Context, w http.ResponseWriter, s *Session) error {
	now := time.Now()
	if now.Sub(s.LastActivityAt) < m.config.ActivityUpdateThreshold {
		return nil
	}

	s.LastActivityAt = now
	s.ExpiresAt = m.config.expiry(s.CreatedAt, now)
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	return m.transport.SetToken(w, s.Token, time.Until(s.ExpiresAt))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
