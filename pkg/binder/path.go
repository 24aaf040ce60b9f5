package binder

import "net/http"

// Path binds `path:"name"` fields through a router specific extractor,
// e.g. chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "path", func(name string) ([]string, bool) {
			value := extractor(r, name)
			return []string{value}, value != ""
		}, ErrInvalidPath)
	}
}
