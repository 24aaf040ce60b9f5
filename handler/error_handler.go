package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/bookkeeper/pkg/logger"
	"github.com/dmitrymomot/bookkeeper/pkg/requestid"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

type ErrorPageParams struct {
	Key        string
	StatusCode int
	RequestID  string
}

type ErrorHandlerConfig struct {
	// ErrorPage renders the full error document. Without it a plain text
	// body is written.
	ErrorPage func(ErrorPageParams) templ.Component
	// Target is the element replaced for datastar requests.
	Target string
}

func classifyError(err error) (int, string) {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, httpErr.Key
	case validator.IsValidationError(err):
		return ErrUnprocessableEntity.Code, ErrUnprocessableEntity.Key
	default:
		return ErrInternalServerError.Code, ErrInternalServerError.Key
	}
}

// NewErrorHandler logs err (warn for 4xx, error for 5xx) and renders
// the error page.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Target == "" {
		cfg.Target = "main"
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		code, key := classifyError(err)
		reqID := requestid.FromContext(r.Context())

		level := slog.LevelError
		if code < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.Error(err),
			slog.Int("status_code", code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		if cfg.ErrorPage == nil {
			http.Error(ctx.ResponseWriter(), key, code)
			return
		}

		page := cfg.ErrorPage(ErrorPageParams{Key: key, StatusCode: code, RequestID: reqID})
		resp := TemplStatus(code, page, WithTarget(cfg.Target), WithPatchMode(PatchOuter))
		if rerr := resp.Render(ctx.ResponseWriter(), r); rerr != nil {
			log.ErrorContext(r.Context(), "failed to render error page",
				logger.Error(rerr),
				logger.Event("render_error_page"),
			)
		}
	}
}
