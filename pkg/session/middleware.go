package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/bookkeeper/pkg/logger"
)

// Middleware puts the request's session, when valid, into the context.
// Stale tokens are cleared from the client. Store failures are logged and
// the request continues anonymously.
func (m *Manager) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			s, err := m.Get(ctx, r)
			switch {
			case err == nil:
				if err := m.touch(ctx, w, s); err != nil {
					log.WarnContext(ctx, "failed to extend session", logger.Error(err), logger.Component("session"))
				}
				r = r.WithContext(WithSession(ctx, s))
			case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrInvalidSession):
				m.transport.ClearToken(w)
			case errors.Is(err, ErrSessionNotFound):
				// anonymous request, or a token the store no longer knows
			default:
				log.ErrorContext(ctx, "failed to load session", logger.Error(err), logger.Component("session"))
			}

			next.ServeHTTP(w, r)
		})
	}
}
