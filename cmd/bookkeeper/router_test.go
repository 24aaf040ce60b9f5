package main

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/ratelimiter"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
	"github.com/dmitrymomot/bookkeeper/pkg/sqlite"
	sqlitestore "github.com/dmitrymomot/bookkeeper/store/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, limiter ...*ratelimiter.Bucket) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	db, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "app.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlitestore.Migrate(ctx, db, log))

	cookies, err := cookie.New([]string{testSecret})
	require.NoError(t, err)

	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	sessions := session.New(session.NewCookieTransport(cookies, "sid"), session.WithStore(store))

	deps := routerDeps{
		log:        log,
		repo:       sqlitestore.New(db),
		cookies:    cookies,
		sessions:   sessions,
		bcryptCost: 4,
		checks:     []func(context.Context) error{sqlite.Healthcheck(db)},
	}
	if len(limiter) > 0 {
		deps.loginLimiter = limiter[0]
	}

	srv := httptest.NewServer(newRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

// browser keeps cookies and stops at every redirect.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: srv.URL, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type page struct {
	status   int
	location string
	body     string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return page{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(name, email, password string) {
	b.t.Helper()
	p := b.post("/registrar", url.Values{"name": {name}, "email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusSeeOther, p.status, p.body)
	require.Equal(b.t, "/?novo=1", p.location)
}

var editLink = regexp.MustCompile(`href="/editar/(\d+)"`)

func (b *browser) createBook(title, author string) string {
	b.t.Helper()
	p := b.post("/criar", url.Values{"title": {title}, "author": {author}})
	require.Equal(b.t, http.StatusSeeOther, p.status, p.body)

	list := b.get("/livros?q=" + url.QueryEscape(title))
	m := editLink.FindAllStringSubmatch(list.body, -1)
	require.NotEmpty(b.t, m)
	return m[len(m)-1][1]
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	b := newBrowser(t, srv)

	live := b.get("/healthz")
	assert.Equal(t, http.StatusOK, live.status)
	assert.Equal(t, "ALIVE", live.body)

	ready := b.get("/readyz")
	assert.Equal(t, http.StatusOK, ready.status)
	assert.Equal(t, "READY", ready.body)
}

func TestLanding(t *testing.T) {
	b := newBrowser(t, newTestServer(t))

	p := b.get("/")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "BookKeeper está vivo!")

	missing := b.get("/nope")
	assert.Equal(t, http.StatusNotFound, missing.status)
	assert.Contains(t, missing.body, "Erro 404")
}

func TestBookLifecycle(t *testing.T) {
	b := newBrowser(t, newTestServer(t))

	b.register("Ana", "ana@x.com", "pw1")

	home := b.get("/?novo=1")
	require.Equal(t, http.StatusOK, home.status)
	assert.Contains(t, home.body, "Olá, Ana!")
	assert.Contains(t, home.body, `id="welcome"`)

	id := b.createBook("Dune", "Herbert")

	list := b.get("/livros")
	assert.Equal(t, 1, strings.Count(list.body, "data-book-id="))
	assert.Contains(t, list.body, "Dune")
	assert.Contains(t, list.body, "Disponível")

	edited := b.post("/editar/"+id, url.Values{"title": {"Dune"}, "author": {"Herbert"}, "status": {"Loaned"}})
	require.Equal(t, http.StatusSeeOther, edited.status, edited.body)

	dash := b.get("/")
	assert.Contains(t, dash.body, `<div data-stat="Loaned"><dt>Emprestado</dt><dd>1</dd></div>`)
	assert.Contains(t, dash.body, `<div data-stat="Available"><dt>Disponível</dt><dd>0</dd></div>`)
	assert.Contains(t, dash.body, `<div data-stat="total"><dt>Total</dt><dd>1</dd></div>`)

	deleted := b.get("/excluir/" + id)
	require.Equal(t, http.StatusSeeOther, deleted.status)
	assert.NotContains(t, b.get("/livros").body, "data-book-id=")

	out := b.get("/logout")
	assert.Equal(t, "/login", out.location)
	assert.Equal(t, "/login", b.get("/livros").location)
}

func TestOwnershipIsolation(t *testing.T) {
	srv := newTestServer(t)
	ana, bia := newBrowser(t, srv), newBrowser(t, srv)

	ana.register("Ana", "ana@x.com", "pw1")
	bia.register("Bia", "bia@x.com", "pw2")
	biasBook := bia.createBook("Emma", "Austen")

	assert.NotContains(t, ana.get("/livros").body, "Emma")

	edit := ana.get("/editar/" + biasBook)
	assert.Equal(t, http.StatusForbidden, edit.status)
	assert.Contains(t, edit.body, "Acesso negado")

	del := ana.get("/excluir/" + biasBook)
	assert.Equal(t, http.StatusForbidden, del.status)
	assert.Empty(t, del.location)

	update := ana.post("/editar/"+biasBook, url.Values{"title": {"x"}, "author": {"y"}, "status": {"Loaned"}})
	assert.Equal(t, http.StatusForbidden, update.status)

	assert.Contains(t, bia.get("/livros").body, "Emma")
	assert.Equal(t, http.StatusNotFound, ana.get("/editar/999999").status)
}

func TestAuthFailures(t *testing.T) {
	srv := newTestServer(t)
	ana := newBrowser(t, srv)
	ana.register("Ana", "ana@x.com", "pw1")

	t.Run("duplicate email creates no second user", func(t *testing.T) {
		other := newBrowser(t, srv)
		p := other.post("/registrar", url.Values{"name": {"Other"}, "email": {"ANA@x.com"}, "password": {"pw9"}})
		assert.Equal(t, http.StatusConflict, p.status)

		login := other.post("/login", url.Values{"email": {"ana@x.com"}, "password": {"pw9"}})
		assert.Equal(t, http.StatusUnauthorized, login.status)
	})

	t.Run("wrong password leaves the visitor anonymous", func(t *testing.T) {
		other := newBrowser(t, srv)
		p := other.post("/login", url.Values{"email": {"ana@x.com"}, "password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, p.status)
		assert.Contains(t, p.body, "E-mail ou senha inválidos.")

		assert.Equal(t, "/login", other.get("/livros").location)
	})

	t.Run("correct password logs in", func(t *testing.T) {
		other := newBrowser(t, srv)
		p := other.post("/login", url.Values{"email": {"Ana@X.com"}, "password": {"pw1"}})
		require.Equal(t, http.StatusSeeOther, p.status)
		assert.Equal(t, "/", p.location)
		assert.Contains(t, other.get("/").body, "Olá, Ana!")
	})

	t.Run("invalid registration", func(t *testing.T) {
		other := newBrowser(t, srv)
		p := other.post("/registrar", url.Values{"name": {""}, "email": {"nope"}, "password": {""}})
		assert.Equal(t, http.StatusUnprocessableEntity, p.status)
		assert.Contains(t, p.body, "Nome é obrigatório.")
	})
}

func TestLoginThrottle(t *testing.T) {
	limiter, err := ratelimiter.NewBucket(ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)
	b := newBrowser(t, newTestServer(t, limiter))

	creds := url.Values{"email": {"who@x.com"}, "password": {"guess"}}
	assert.Equal(t, http.StatusUnauthorized, b.post("/login", creds).status)
	assert.Equal(t, http.StatusUnauthorized, b.post("/login", creds).status)

	p := b.post("/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, p.status)
	assert.Contains(t, p.body, "Muitas tentativas")

	assert.Equal(t, http.StatusOK, b.get("/login").status, "only submissions are throttled")
}

func TestLoginThrottleIgnoresSpoofedForwarding(t *testing.T) {
	limiter, err := ratelimiter.NewBucket(ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)
	b := newBrowser(t, newTestServer(t, limiter))

	creds := url.Values{"email": {"who@x.com"}, "password": {"guess"}}
	var statuses []int
	for i := 1; i <= 4; i++ {
		req, err := http.NewRequest(http.MethodPost, b.base+"/login", strings.NewReader(creds.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		req.Header.Set("X-Real-IP", "10.0.1."+strconv.Itoa(i))
		statuses = append(statuses, b.do(req).status)
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, statuses)
}
