package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
)

var (
	secretA = strings.Repeat("a", 32)
	secretB = strings.Repeat("b", 40)
)

// replay copies the cookies set on rec into a fresh request.
func replay(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := cookie.New(nil)
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"", ""})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"short"})
	assert.ErrorIs(t, err, cookie.ErrSecretTooShort)

	m, err := cookie.New([]string{secretA})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestEncryptedRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetEncrypted(rec, "sid", "token-123"))

	set := rec.Result().Cookies()
	require.Len(t, set, 1)
	assert.NotContains(t, set[0].Value, "token-123")
	assert.True(t, set[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, set[0].SameSite)

	got, err := m.GetEncrypted(replay(rec), "sid")
	require.NoError(t, err)
	assert.Equal(t, "token-123", got)
}

func TestEncrypted_Tampering(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := m.GetEncrypted(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("not base64", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "%%%"})
		_, err := m.GetEncrypted(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})

	t.Run("renamed cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetEncrypted(rec, "sid", "v"))
		value := rec.Result().Cookies()[0].Value

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "other", Value: value})
		_, err := m.GetEncrypted(req, "other")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})

	t.Run("foreign secret", func(t *testing.T) {
		other, err := cookie.New([]string{secretB})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		require.NoError(t, other.SetEncrypted(rec, "sid", "v"))
		_, err = m.GetEncrypted(replay(rec), "sid")
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
	})
}

func TestKeyRotation(t *testing.T) {
	t.Parallel()

	old, err := cookie.New([]string{secretA})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{secretB, secretA})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, old.SetEncrypted(rec, "sid", "v"))

	got, err := rotated.GetEncrypted(replay(rec), "sid")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestFlash(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secretA})
	require.NoError(t, err)

	type notice struct{ Kind, Message string }

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetFlash(rec, "notice", notice{"success", "Livro criado"}))

	read := httptest.NewRecorder()
	var got notice
	require.NoError(t, m.GetFlash(read, replay(rec), "notice", &got))
	assert.Equal(t, notice{"success", "Livro criado"}, got)

	deleted := read.Result().Cookies()
	require.Len(t, deleted, 1)
	assert.Equal(t, -1, deleted[0].MaxAge)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{
		Secrets:  []string{secretA},
		Path:     "/app",
		Secure:   true,
		SameSite: "strict",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, "plain", "value")
	c := rec.Result().Cookies()[0]
	assert.Equal(t, "/app", c.Path)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}
