package views

import (
	"github.com/a-h/templ"

	"github.com/dmitrymomot/bookkeeper/pkg/books"
)

// Landing is shown to anonymous visitors of "/".
func Landing() templ.Component {
	return Page{Title: T("app.name"), Body: landingBody()}
}

type DashboardData struct {
	UserName string
	Stats    books.Stats
	// NewUser shows the welcome banner after registration.
	NewUser bool
}

func Dashboard(d DashboardData) templ.Component {
	return Page{
		Title:    T("dashboard.title"),
		UserName: d.UserName,
		Body:     dashboardBody(d),
	}
}

// StatusLabel is the Portuguese name of s.
func StatusLabel(s books.Status) string {
	return T("status." + string(s))
}
