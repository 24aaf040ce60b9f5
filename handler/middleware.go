package handler

import "net/http"

// RequireAuth creates middleware that redirects anonymous requests to
// loginURL. It runs before any binder, so a malformed request from an
// anonymous user still ends at the login page.
func RequireAuth(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := NewContext(w, r).Identity(); !ok {
				// Only a datastar stream write can fail here; the client is gone.
				_ = Redirect(loginURL).Render(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
