package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/bookkeeper/handler"
	"github.com/dmitrymomot/bookkeeper/modules/account"
	"github.com/dmitrymomot/bookkeeper/modules/library"
	"github.com/dmitrymomot/bookkeeper/pkg/auth"
	"github.com/dmitrymomot/bookkeeper/pkg/books"
	"github.com/dmitrymomot/bookkeeper/pkg/clientip"
	"github.com/dmitrymomot/bookkeeper/pkg/cookie"
	"github.com/dmitrymomot/bookkeeper/pkg/httpserver"
	"github.com/dmitrymomot/bookkeeper/pkg/ratelimiter"
	"github.com/dmitrymomot/bookkeeper/pkg/requestid"
	"github.com/dmitrymomot/bookkeeper/pkg/session"
	"github.com/dmitrymomot/bookkeeper/views"
)

type routerDeps struct {
	log      *slog.Logger
	repo     repository
	cookies  *cookie.Manager
	sessions *session.Manager
	// clientIP decides which forwarding headers to believe; nil trusts none.
	clientIP *clientip.Resolver
	// loginLimiter throttles credential submissions per client IP; nil disables it.
	loginLimiter *ratelimiter.Bucket
	// bcryptCost of 0 keeps the library default.
	bcryptCost int
	checks     []func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	errorHandler := handler.NewErrorHandler(d.log, handler.ErrorHandlerConfig{ErrorPage: views.ErrorPage})
	tooManyRequests := errorRoute(handler.ErrTooManyRequests, errorHandler)

	authService := auth.NewPasswordService(d.repo,
		auth.WithBcryptCost(d.bcryptCost),
		auth.WithLogger(d.log),
	)
	bookService := books.NewService(d.repo, d.log)

	ips := d.clientIP
	if ips == nil {
		ips = &clientip.Resolver{}
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware, ips.Middleware, middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(d.log))
	r.Get("/readyz", httpserver.HealthCheckHandler(d.log, d.checks...))

	r.Group(func(r chi.Router) {
		r.Use(d.sessions.Middleware(d.log))

		accounts := account.New(authService, d.sessions, errorHandler, d.log)
		if d.loginLimiter != nil {
			accounts.WithThrottle(ratelimiter.Middleware(d.loginLimiter, clientKey, tooManyRequests))
		}
		accounts.Routes(r)
		library.New(bookService, d.cookies, errorHandler, d.log).Routes(r)
	})

	r.NotFound(errorRoute(handler.ErrNotFound, errorHandler))
	r.MethodNotAllowed(errorRoute(handler.ErrMethodNotAllowed, errorHandler))

	return r
}

// errorRoute answers every request with err through the error page.
func errorRoute(err error, eh handler.ErrorHandler) http.HandlerFunc {
	return handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.Error(err)
	}, handler.WithErrorHandler[struct{}](eh))
}

func clientKey(r *http.Request) string {
	return clientip.FromContext(r.Context())
}
