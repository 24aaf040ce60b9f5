// Package account serves login, registration and logout.
package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/bookkeeper/handler"
	"github.com/dmitrymomot/bookkeeper/pkg/auth"
	"github.com/dmitrymomot/bookkeeper/pkg/binder"
	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
	"github.com/dmitrymomot/bookkeeper/views"
)

type Authenticator interface {
	Register(ctx context.Context, name, email, password string) (*auth.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
}

type Sessions interface {
	Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, userName string) (*session.Session, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

type Module struct {
	auth         Authenticator
	sessions     Sessions
	errorHandler handler.ErrorHandler
	logger       *slog.Logger
	throttle     []func(http.Handler) http.Handler
}

func New(a Authenticator, sessions Sessions, errorHandler handler.ErrorHandler, log *slog.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{auth: a, sessions: sessions, errorHandler: errorHandler, logger: log}
}

// WithThrottle guards the credential submissions (POST /login and
// POST /registrar) with mw.
func (m *Module) WithThrottle(mw func(http.Handler) http.Handler) *Module {
	m.throttle = append(m.throttle, mw)
	return m
}

func (m *Module) Routes(r chi.Router) {
	r.Get("/login", handler.Wrap(m.authPage,
		handler.WithErrorHandler[struct{}](m.errorHandler),
	))
	r.Get("/registrar", handler.Wrap(m.authPage,
		handler.WithErrorHandler[struct{}](m.errorHandler),
	))

	guarded := r.With(m.throttle...)
	guarded.Post("/login", handler.Wrap(m.login,
		handler.WithBinders[LoginRequest](binder.Form()),
		handler.WithErrorHandler[LoginRequest](m.errorHandler),
	))
	guarded.Post("/registrar", handler.Wrap(m.register,
		handler.WithBinders[RegisterRequest](binder.Form()),
		handler.WithErrorHandler[RegisterRequest](m.errorHandler),
	))
	r.Get("/logout", handler.Wrap(m.logout,
		handler.WithErrorHandler[struct{}](m.errorHandler),
	))
}

func (m *Module) authPage(ctx handler.Context, _ struct{}) handler.Response {
	if _, ok := ctx.Identity(); ok {
		return handler.Redirect("/")
	}
	return handler.Templ(views.AuthPage(views.AuthData{}))
}

type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (m *Module) login(ctx handler.Context, req LoginRequest) handler.Response {
	user, err := m.auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return handler.TemplStatus(http.StatusUnauthorized, views.AuthPage(views.AuthData{
				LoginEmail: req.Email,
				LoginError: "account.invalid_credentials",
			}))
		}
		return handler.Error(err)
	}

	if _, err := m.sessions.Authenticate(ctx, ctx.ResponseWriter(), ctx.Request(), user.ID, user.Name); err != nil {
		return handler.Error(err)
	}

	m.logger.InfoContext(ctx, "user logged in", logger.UserID(user.ID), logger.Component("account"))
	return handler.Redirect("/")
}

type RegisterRequest struct {
	Name     string `form:"name"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (m *Module) register(ctx handler.Context, req RegisterRequest) handler.Response {
	user, err := m.auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		data := views.AuthData{RegisterName: req.Name, RegisterEmail: req.Email}
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyExists):
			data.RegisterError = "account.email_taken"
			return handler.TemplStatus(http.StatusConflict, views.AuthPage(data))
		case validator.IsValidationError(err):
			data.RegisterErrors = validator.ExtractValidationErrors(err)
			return handler.TemplStatus(http.StatusUnprocessableEntity, views.AuthPage(data))
		}
		return handler.Error(err)
	}

	if _, err := m.sessions.Authenticate(ctx, ctx.ResponseWriter(), ctx.Request(), user.ID, user.Name); err != nil {
		return handler.Error(err)
	}
	return handler.Redirect("/?novo=1")
}

func (m *Module) logout(ctx handler.Context, _ struct{}) handler.Response {
	if err := m.sessions.Destroy(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		m.logger.WarnContext(ctx, "failed to destroy session", logger.Error(err), logger.Component("account"))
	}
	return handler.Redirect("/login")
}
