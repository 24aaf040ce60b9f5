// Package library serves the dashboard and the owner-scoped book pages.
package library

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/bookkeeper/handler"
	"github.com/dmitrymomot/bookkeeper/pkg/binder"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
	"github.com/dmitrymomot/bookkeeper/views"
)

const (
	loginURL  = "/login"
	listURL   = "/livros"
	noticeKey = "notice"
)

type Books interface {
	List(ctx context.Context, ownerID int64, query string) ([]books.Book, error)
	Create(ctx context.Context, ownerID int64, in books.Input) (*books.Book, error)
	Get(ctx context.Context, ownerID, id int64) (*books.Book, error)
	Update(ctx context.Context, ownerID, id int64, in books.Input) (*books.Book, error)
	Delete(ctx context.Context, ownerID, id int64) error
	Stats(ctx context.Context, ownerID int64) (books.Stats, error)
}

// Flash carries a notice across the redirect after a write.
type Flash interface {
	SetFlash(w http.ResponseWriter, key string, value any) error
	GetFlash(w http.ResponseWriter, r *http.Request, key string, dest any) error
}

type Module struct {
	books        Books
	flash        Flash
	errorHandler handler.ErrorHandler
	logger       *slog.Logger
}

func New(b Books, flash Flash, errorHandler handler.ErrorHandler, log *slog.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{books: b, flash: flash, errorHandler: errorHandler, logger: log}
}

func (m *Module) Routes(r chi.Router) {
	r.Get("/", handler.Wrap(m.dashboard,
		handler.WithBinders[DashboardRequest](binder.Query()),
		handler.WithErrorHandler[DashboardRequest](m.errorHandler),
	))

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth(loginURL))

		r.Get(listURL, handler.Wrap(m.list,
			handler.WithBinders[ListRequest](binder.Query()),
			handler.WithErrorHandler[ListRequest](m.errorHandler),
		))

		r.Get("/criar", handler.Wrap(m.createForm,
			handler.WithErrorHandler[struct{}](m.errorHandler),
		))
		r.Post("/criar", handler.Wrap(m.create,
			handler.WithBinders[BookRequest](binder.Form()),
			handler.WithErrorHandler[BookRequest](m.errorHandler),
		))

		r.Get("/editar/{id}", handler.Wrap(m.editForm,
			handler.WithBinders[BookRequest](binder.Path(chi.URLParam)),
			handler.WithErrorHandler[BookRequest](m.errorHandler),
		))
		r.Post("/editar/{id}", handler.Wrap(m.edit,
			handler.WithBinders[BookRequest](binder.Path(chi.URLParam), binder.Form()),
			handler.WithErrorHandler[BookRequest](m.errorHandler),
		))

		del := handler.Wrap(m.delete,
			handler.WithBinders[BookRequest](binder.Path(chi.URLParam)),
			handler.WithErrorHandler[BookRequest](m.errorHandler),
		)
		r.Get("/excluir/{id}", del)
		r.Post("/excluir/{id}", del)
	})
}

// domainError maps book errors onto HTTP errors.
func domainError(err error) error {
	switch {
	case errors.Is(err, books.ErrNotFound):
		return errors.Join(handler.ErrNotFound, err)
	case errors.Is(err, books.ErrAccessDenied):
		return errors.Join(handler.ErrForbidden, err)
	}
	return err
}

func (m *Module) setNotice(ctx handler.Context, key string) {
	if err := m.flash.SetFlash(ctx.ResponseWriter(), noticeKey, key); err != nil {
		m.logger.WarnContext(ctx, "failed to set flash", logger.Error(err), logger.Component("library"))
	}
}

func (m *Module) notice(ctx handler.Context) string {
	var key string
	_ = m.flash.GetFlash(ctx.ResponseWriter(), ctx.Request(), noticeKey, &key)
	return key
}

type DashboardRequest struct {
	New string `query:"novo"`
}

func (m *Module) dashboard(ctx handler.Context, req DashboardRequest) handler.Response {
	id, ok := ctx.Identity()
	if !ok {
		return handler.Templ(views.Landing())
	}

	stats, err := m.books.Stats(ctx, id.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(views.Dashboard(views.DashboardData{
		UserName: id.UserName,
		Stats:    stats,
		NewUser:  req.New == "1",
	}))
}

type ListRequest struct {
	Q string `query:"q"`
}

type searchSignals struct {
	Q string `json:"q"`
}

func (m *Module) list(ctx handler.Context, req ListRequest) handler.Response {
	id, _ := ctx.Identity()

	if handler.IsDataStar(ctx.Request()) {
		var signals searchSignals
		if err := datastar.ReadSignals(ctx.Request(), &signals); err != nil {
			return handler.Error(errors.Join(handler.ErrBadRequest, err))
		}
		list, err := m.books.List(ctx, id.UserID, signals.Q)
		if err != nil {
			return handler.Error(err)
		}
		return handler.Templ(views.BookTable(list))
	}

	list, err := m.books.List(ctx, id.UserID, req.Q)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(views.BookList(views.BookListData{
		UserName: id.UserName,
		Query:    req.Q,
		Books:    list,
		Notice:   m.notice(ctx),
	}))
}

type BookRequest struct {
	ID     int64  `path:"id"`
	Title  string `form:"title"`
	Author string `form:"author"`
	Status string `form:"status"`
}

func (r BookRequest) input() books.Input {
	return books.Input{Title: r.Title, Author: r.Author, Status: r.Status}
}

func (m *Module) createForm(ctx handler.Context, _ struct{}) handler.Response {
	id, _ := ctx.Identity()
	return handler.Templ(views.BookForm(views.BookFormData{UserName: id.UserName}))
}

func (m *Module) create(ctx handler.Context, req BookRequest) handler.Response {
	id, _ := ctx.Identity()

	if _, err := m.books.Create(ctx, id.UserID, req.input()); err != nil {
		if validator.IsValidationError(err) {
			return handler.TemplStatus(http.StatusUnprocessableEntity, views.BookForm(views.BookFormData{
				UserName: id.UserName,
				Title:    req.Title,
				Author:   req.Author,
				Errors:   validator.ExtractValidationErrors(err),
			}))
		}
		return handler.Error(err)
	}

	m.setNotice(ctx, "books.created")
	return handler.Redirect(listURL)
}

func (m *Module) editForm(ctx handler.Context, req BookRequest) handler.Response {
	id, _ := ctx.Identity()

	book, err := m.books.Get(ctx, id.UserID, req.ID)
	if err != nil {
		return handler.Error(domainError(err))
	}
	return handler.Templ(views.BookForm(views.BookFormData{
		UserName: id.UserName,
		BookID:   book.ID,
		Title:    book.Title,
		Author:   book.Author,
		Status:   book.Status,
	}))
}

func (m *Module) edit(ctx handler.Context, req BookRequest) handler.Response {
	id, _ := ctx.Identity()

	if _, err := m.books.Update(ctx, id.UserID, req.ID, req.input()); err != nil {
		if validator.IsValidationError(err) {
			return handler.TemplStatus(http.StatusUnprocessableEntity, views.BookForm(views.BookFormData{
				UserName: id.UserName,
				BookID:   req.ID,
				Title:    req.Title,
				Author:   req.Author,
				Status:   books.Status(req.Status),
				Errors:   validator.ExtractValidationErrors(err),
			}))
		}
		return handler.Error(domainError(err))
	}

	m.setNotice(ctx, "books.updated")
	return handler.Redirect(listURL)
}

func (m *Module) delete(ctx handler.Context, req BookRequest) handler.Response {
	id, _ := ctx.Identity()

	if err := m.books.Delete(ctx, id.UserID, req.ID); err != nil {
		return handler.Error(domainError(err))
	}

	m.setNotice(ctx, "books.deleted")
	return handler.Redirect(listURL)
}
