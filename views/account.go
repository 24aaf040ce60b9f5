package views

import (
	"github.com/a-h/templ"

	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

// AuthData fills the combined login and registration page.
type AuthData struct {
	LoginEmail string
	// LoginError is a message key shown above the login form.
	LoginError string

	RegisterName   string
	RegisterEmail  string
	RegisterError  string
	RegisterErrors validator.ValidationErrors
}

func AuthPage(d AuthData) templ.Component {
	return Page{Title: T("account.login_title"), Body: authBody(d)}
}
