package handler

import (
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

const PatchOuter = datastar.ElementPatchModeOuter

// IsDataStar reports whether the request came from a datastar action,
// which expects server-sent events instead of HTML.
func IsDataStar(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	return r.URL.Query().Has("datastar")
}
