package binder

import "net/http"

// Query binds `query:"name"` fields from the URL query string.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		query := r.URL.Query()
		if len(query) == 0 {
			return ErrBinderNotApplicable
		}
		return bindToStruct(v, "query", func(name string) ([]string, bool) {
			values, ok := query[name]
			return values, ok
		}, ErrInvalidQuery)
	}
}
