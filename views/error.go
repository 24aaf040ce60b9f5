package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/bookkeeper/handler"
)

// ErrorPage renders any request failure, including the access-denied
// page of foreign books.
func ErrorPage(p handler.ErrorPageParams) templ.Component {
	title := T("errors.title", "code", strconv.Itoa(p.StatusCode))
	return Page{Title: title, Body: errorBody(title, ErrorMessage(p.Key), p.RequestID)}
}
