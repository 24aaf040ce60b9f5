package library_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bookkeeper/handler"
	"github.com/dmitrymomot/bookkeeper/modules/library"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
	"github.com/dmitrymomot/bookkeeper/views"
)

type mockBooks struct{ mock.Mock }

func (m *mockBooks) List(ctx context.Context, ownerID int64, query string) ([]books.Book, error) {
	args := m.Called(ctx, ownerID, query)
	list, _ := args.Get(0).([]books.Book)
	return list, args.Error(1)
}

func (m *mockBooks) Create(ctx context.Context, ownerID int64, in books.Input) (*books.Book, error) {
	args := m.Called(ctx, ownerID, in)
	b, _ := args.Get(0).(*books.Book)
	return b, args.Error(1)
}

func (m *mockBooks) Get(ctx context.Context, ownerID, id int64) (*books.Book, error) {
	args := m.Called(ctx, ownerID, id)
	b, _ := args.Get(0).(*books.Book)
	return b, args.Error(1)
}

func (m *mockBooks) Update(ctx context.Context, ownerID, id int64, in books.Input) (*books.Book, error) {
	args := m.Called(ctx, ownerID, id, in)
	b, _ := args.Get(0).(*books.Book)
	return b, args.Error(1)
}

func (m *mockBooks) Delete(ctx context.Context, ownerID, id int64) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockBooks) Stats(ctx context.Context, ownerID int64) (books.Stats, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(books.Stats), args.Error(1)
}

// memFlash keeps notices in memory instead of cookies.
type memFlash struct {
	values map[string]string
}

func (f *memFlash) SetFlash(_ http.ResponseWriter, key string, value any) error {
	f.values[key], _ = value.(string)
	return nil
}

func (f *memFlash) GetFlash(_ http.ResponseWriter, _ *http.Request, key string, dest any) error {
	v, ok := f.values[key]
	if !ok {
		return http.ErrNoCookie
	}
	delete(f.values, key)
	*dest.(*string) = v
	return nil
}

type env struct {
	router http.Handler
	books  *mockBooks
	flash  *memFlash
}

func setup(t *testing.T) *env {
	t.Helper()
	e := &env{books: &mockBooks{}, flash: &memFlash{values: map[string]string{}}}
	t.Cleanup(func() { e.books.AssertExpectations(t) })

	r := chi.NewRouter()
	eh := handler.NewErrorHandler(logger.Discard(), handler.ErrorHandlerConfig{ErrorPage: views.ErrorPage})
	library.New(e.books, e.flash, eh, logger.Discard()).Routes(r)
	e.router = r
	return e
}

func (e *env) do(req *http.Request, userID int64) *httptest.ResponseRecorder {
	if userID != 0 {
		req = req.WithContext(session.WithSession(req.Context(), &session.Session{UserID: userID, UserName: "Ana"}))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDashboard(t *testing.T) {
	t.Run("anonymous sees the landing page", func(t *testing.T) {
		e := setup(t)
		rec := e.do(httptest.NewRequest(http.MethodGet, "/", nil), 0)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "BookKeeper está vivo!")
	})

	t.Run("owner sees counts and the new user banner", func(t *testing.T) {
		e := setup(t)
		e.books.On("Stats", mock.Anything, int64(1)).Return(books.Stats{Total: 2, Available: 1, Reading: 1}, nil)

		rec := e.do(httptest.NewRequest(http.MethodGet, "/?novo=1", nil), 1)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `id="welcome"`)
		assert.Contains(t, rec.Body.String(), `<div data-stat="total"><dt>Total</dt><dd>2</dd></div>`)
	})
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	e := setup(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/livros"},
		{http.MethodGet, "/criar"},
		{http.MethodPost, "/criar"},
		{http.MethodGet, "/editar/1"},
		{http.MethodPost, "/editar/1"},
		{http.MethodGet, "/excluir/1"},
		{http.MethodPost, "/excluir/1"},
	} {
		rec := e.do(formRequest(tc.method, tc.path, url.Values{"title": {"x"}}), 0)
		assert.Equal(t, http.StatusSeeOther, rec.Code, tc.method+" "+tc.path)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	}
}

func TestMalformedAnonymousRequestsRedirectToLogin(t *testing.T) {
	e := setup(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/editar/abc"},
		{http.MethodPost, "/editar/abc"},
		{http.MethodGet, "/excluir/abc"},
		{http.MethodPost, "/excluir/abc"},
	} {
		rec := e.do(httptest.NewRequest(tc.method, tc.path, nil), 0)
		assert.Equal(t, http.StatusSeeOther, rec.Code, tc.method+" "+tc.path)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodPost, "/criar", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req, 0)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	e.books.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	e.books.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestList(t *testing.T) {
	t.Run("html with search and notice", func(t *testing.T) {
		e := setup(t)
		e.flash.values["notice"] = "books.deleted"
		e.books.On("List", mock.Anything, int64(1), "dune").
			Return([]books.Book{{ID: 3, Title: "Dune", Author: "Herbert", Status: books.StatusAvailable}}, nil)

		rec := e.do(httptest.NewRequest(http.MethodGet, "/livros?q=dune", nil), 1)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Dune")
		assert.Contains(t, rec.Body.String(), "Livro excluído.")
		assert.Empty(t, e.flash.values, "notice is shown once")
	})

	t.Run("datastar search patches the list", func(t *testing.T) {
		e := setup(t)
		e.books.On("List", mock.Anything, int64(1), "emma").
			Return([]books.Book{{ID: 4, Title: "Emma", Author: "Austen", Status: books.StatusReading}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/livros?datastar="+url.QueryEscape(`{"q":"emma"}`), nil)
		req.Header.Set("Accept", "text/event-stream")
		rec := e.do(req, 1)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, rec.Body.String(), "datastar-patch-elements")
		assert.Contains(t, rec.Body.String(), `id="book-list"`)
		assert.NotContains(t, rec.Body.String(), "<!doctype html>")
	})
}

func TestCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e := setup(t)
		in := books.Input{Title: "Dune", Author: "Herbert"}
		e.books.On("Create", mock.Anything, int64(1), in).Return(&books.Book{ID: 1}, nil)

		rec := e.do(formRequest(http.MethodPost, "/criar", url.Values{"title": {"Dune"}, "author": {"Herbert"}}), 1)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/livros", rec.Header().Get("Location"))
		assert.Equal(t, "books.created", e.flash.values["notice"])
	})

	t.Run("validation error re-renders the form", func(t *testing.T) {
		e := setup(t)
		verr := validator.Apply(validator.Required("title", ""))
		e.books.On("Create", mock.Anything, int64(1), books.Input{Author: "Herbert"}).Return(nil, verr)

		rec := e.do(formRequest(http.MethodPost, "/criar", url.Values{"title": {""}, "author": {"Herbert"}}), 1)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Título é obrigatório.")
		assert.Contains(t, rec.Body.String(), `value="Herbert"`)
	})
}

func TestEdit(t *testing.T) {
	t.Run("form shows the book", func(t *testing.T) {
		e := setup(t)
		e.books.On("Get", mock.Anything, int64(1), int64(3)).
			Return(&books.Book{ID: 3, Title: "Dune", Author: "Herbert", Status: books.StatusLoaned, OwnerID: 1}, nil)

		rec := e.do(httptest.NewRequest(http.MethodGet, "/editar/3", nil), 1)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="Dune"`)
		assert.Contains(t, rec.Body.String(), `<option value="Loaned" selected>`)
	})

	t.Run("missing book is 404", func(t *testing.T) {
		e := setup(t)
		e.books.On("Get", mock.Anything, int64(1), int64(99)).Return(nil, books.ErrNotFound)

		rec := e.do(httptest.NewRequest(http.MethodGet, "/editar/99", nil), 1)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("foreign book is an access denied page", func(t *testing.T) {
		e := setup(t)
		e.books.On("Get", mock.Anything, int64(1), int64(7)).Return(nil, books.ErrAccessDenied)

		rec := e.do(httptest.NewRequest(http.MethodGet, "/editar/7", nil), 1)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Acesso negado")
		assert.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("non numeric id is a bad request", func(t *testing.T) {
		e := setup(t)
		rec := e.do(httptest.NewRequest(http.MethodGet, "/editar/abc", nil), 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		e := setup(t)
		in := books.Input{Title: "Dune", Author: "Herbert", Status: "Loaned"}
		e.books.On("Update", mock.Anything, int64(1), int64(3), in).Return(&books.Book{ID: 3}, nil)

		rec := e.do(formRequest(http.MethodPost, "/editar/3",
			url.Values{"title": {"Dune"}, "author": {"Herbert"}, "status": {"Loaned"}}), 1)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/livros", rec.Header().Get("Location"))
		assert.Equal(t, "books.updated", e.flash.values["notice"])
	})
}

func TestDelete(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			e := setup(t)
			e.books.On("Delete", mock.Anything, int64(1), int64(3)).Return(nil)

			rec := e.do(httptest.NewRequest(method, "/excluir/3", nil), 1)

			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/livros", rec.Header().Get("Location"))
		})
	}

	t.Run("foreign book", func(t *testing.T) {
		e := setup(t)
		e.books.On("Delete", mock.Anything, int64(1), int64(7)).Return(books.ErrAccessDenied)

		rec := e.do(httptest.NewRequest(http.MethodGet, "/excluir/7", nil), 1)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
