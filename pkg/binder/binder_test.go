package binder_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/pkg/binder"
)

type bookRequest struct {
	ID       int64    `path:"id"`
	Title    string   `form:"title"`
	Author   string   `form:"author"`
	Status   *string  `form:"status"`
	Tags     []string `form:"tag"`
	Featured bool     `form:"featured"`
	Query    string   `query:"q"`
	New      bool     `query:"novo"`
	internal string   `form:"internal"`
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/criar", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("urlencoded", func(t *testing.T) {
		t.Parallel()

		req := postForm(url.Values{
			"title":    {"Dune"},
			"author":   {"Herbert"},
			"status":   {"Reading"},
			"tag":      {"sf", "classic"},
			"featured": {"on"},
			"internal": {"x"},
		})

		var got bookRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Equal(t, "Dune", got.Title)
		assert.Equal(t, "Herbert", got.Author)
		require.NotNil(t, got.Status)
		assert.Equal(t, "Reading", *got.Status)
		assert.Equal(t, []string{"sf", "classic"}, got.Tags)
		assert.True(t, got.Featured)
		assert.Empty(t, got.internal)
	})

	t.Run("multipart", func(t *testing.T) {
		t.Parallel()

		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("title", "Emma"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/criar", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())

		var got bookRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Equal(t, "Emma", got.Title)
	})

	t.Run("ignores query values", func(t *testing.T) {
		t.Parallel()

		req := postForm(url.Values{"author": {"A"}})
		req.URL.RawQuery = "title=fromquery"

		var got bookRequest
		require.NoError(t, binder.Form()(req, &got))
		assert.Empty(t, got.Title)
	})

	t.Run("not applicable on GET", func(t *testing.T) {
		t.Parallel()

		var got bookRequest
		err := binder.Form()(httptest.NewRequest(http.MethodGet, "/criar", nil), &got)
		assert.ErrorIs(t, err, binder.ErrBinderNotApplicable)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/criar", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")

		var got bookRequest
		assert.ErrorIs(t, binder.Form()(req, &got), binder.ErrUnsupportedMediaType)
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Parallel()

		var got bookRequest
		err := binder.Form()(postForm(url.Values{"featured": {"maybe"}}), &got)
		assert.ErrorIs(t, err, binder.ErrInvalidForm)
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()

		err := binder.Form()(postForm(url.Values{"title": {"x"}}), bookRequest{})
		assert.ErrorIs(t, err, binder.ErrInvalidForm)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	var got bookRequest
	require.NoError(t, binder.Query()(httptest.NewRequest(http.MethodGet, "/livros?q=dun&novo=1", nil), &got))
	assert.Equal(t, "dun", got.Query)
	assert.True(t, got.New)

	err := binder.Query()(httptest.NewRequest(http.MethodGet, "/livros", nil), &got)
	assert.ErrorIs(t, err, binder.ErrBinderNotApplicable)
}

func TestPath(t *testing.T) {
	t.Parallel()

	withID := func(id string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/editar/"+id, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	var got bookRequest
	require.NoError(t, binder.Path(chi.URLParam)(withID("42"), &got))
	assert.Equal(t, int64(42), got.ID)

	err := binder.Path(chi.URLParam)(withID("abc"), &got)
	assert.ErrorIs(t, err, binder.ErrInvalidPath)
}
