package session_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
)

func newManager(t *testing.T, cfg session.Config) (*session.Manager, *session.MemoryStore) {
	t.Helper()

	cookies, err := cookie.New([]string{strings.Repeat("s", 32)})
	require.NoError(t, err)

	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	return session.New(session.NewCookieTransport(cookies, cfg.CookieName),
		session.WithStore(store),
		session.WithConfig(cfg),
	), store
}

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestManager_AuthenticateAndGet(t *testing.T) {
	t.Parallel()

	m, store := newManager(t, session.DefaultConfig())
	ctx := context.Background()

	_, err := m.Get(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	rec := httptest.NewRecorder()
	s, err := m.Authenticate(ctx, rec, httptest.NewRequest(http.MethodPost, "/login", nil), 7, "Ana")
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, 1, store.Len())

	got, err := m.Get(ctx, requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "Ana", got.UserName)
}

func TestManager_AuthenticateRotatesToken(t *testing.T) {
	t.Parallel()

	m, store := newManager(t, session.DefaultConfig())
	ctx := context.Background()

	first := httptest.NewRecorder()
	s1, err := m.Authenticate(ctx, first, httptest.NewRequest(http.MethodPost, "/login", nil), 1, "A")
	require.NoError(t, err)

	second := httptest.NewRecorder()
	s2, err := m.Authenticate(ctx, second, requestWithCookies(first), 2, "B")
	require.NoError(t, err)

	assert.NotEqual(t, s1.Token, s2.Token)
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, s1.Token)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestManager_AuthenticateRejectsAnonymous(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t, session.DefaultConfig())
	_, err := m.Authenticate(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), 0, "")
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestManager_Destroy(t *testing.T) {
	t.Parallel()

	m, store := newManager(t, session.DefaultConfig())
	ctx := context.Background()

	login := httptest.NewRecorder()
	_, err := m.Authenticate(ctx, login, httptest.NewRequest(http.MethodPost, "/login", nil), 3, "C")
	require.NoError(t, err)

	logout := httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, logout, requestWithCookies(login)))
	assert.Equal(t, 0, store.Len())

	cleared := logout.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	// Destroying without a session is a no-op.
	require.NoError(t, m.Destroy(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestManager_MaxLifetimeCapsExpiry(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	cfg.IdleTimeout = time.Hour
	cfg.MaxLifetime = time.Minute

	m, _ := newManager(t, cfg)
	s, err := m.Authenticate(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), 1, "A")
	require.NoError(t, err)
	assert.WithinDuration(t, s.CreatedAt.Add(time.Minute), s.ExpiresAt, time.Second)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	cfg.ActivityUpdateThreshold = 0
	m, store := newManager(t, cfg)
	ctx := context.Background()

	var seen *session.Session
	h := m.Middleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = session.FromContext(r.Context())
	}))

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, seen)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("authenticated extends expiry", func(t *testing.T) {
		login := httptest.NewRecorder()
		s, err := m.Authenticate(ctx, login, httptest.NewRequest(http.MethodPost, "/", nil), 9, "Zé")
		require.NoError(t, err)

		seen = nil
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestWithCookies(login))
		require.NotNil(t, seen)
		assert.Equal(t, int64(9), seen.UserID)

		stored, err := store.Get(ctx, s.Token)
		require.NoError(t, err)
		assert.False(t, stored.LastActivityAt.Before(s.LastActivityAt))
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("token unknown to store", func(t *testing.T) {
		login := httptest.NewRecorder()
		s, err := m.Authenticate(ctx, login, httptest.NewRequest(http.MethodPost, "/", nil), 5, "E")
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, s.Token))

		seen = nil
		h.ServeHTTP(httptest.NewRecorder(), requestWithCookies(login))
		assert.Nil(t, seen)
	})
}

type unreachableStore struct {
	*session.MemoryStore
}

func (unreachableStore) Get(context.Context, string) (*session.Session, error) {
	return nil, errors.New("store unreachable")
}

func TestMiddleware_LogsStoreFailure(t *testing.T) {
	t.Parallel()

	cookies, err := cookie.New([]string{strings.Repeat("s", 32)})
	require.NoError(t, err)
	mem := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })
	m := session.New(session.NewCookieTransport(cookies, session.DefaultConfig().CookieName), session.WithStore(unreachableStore{mem}))

	login := httptest.NewRecorder()
	_, err = m.Authenticate(context.Background(), login, httptest.NewRequest(http.MethodPost, "/", nil), 3, "Ana")
	require.NoError(t, err)

	var logs bytes.Buffer
	log := logger.New(logger.WithOutput(&logs), logger.WithFormat(logger.FormatJSON))

	var seen bool
	h := m.Middleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = session.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), requestWithCookies(login))

	assert.False(t, seen, "request continues anonymously")
	assert.Contains(t, logs.String(), `"msg":"failed to load session"`)
	assert.Contains(t, logs.String(), `"error":"store unreachable"`)
	assert.Contains(t, logs.String(), `"component":"session"`)
}
