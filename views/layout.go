// Package views renders the HTML pages of the application in Portuguese.
package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.924 generate

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/bookkeeper/handler"
)

// Page is a full document. Datastar requests receive only its <main>.
type Page struct {
	Title string
	// UserName is empty for anonymous visitors.
	UserName string
	Body     templ.Component
}

func (p Page) Render(ctx context.Context, w io.Writer) error {
	return document(p).Render(ctx, w)
}

func (p Page) Fragment() handler.TemplComponent {
	return mainContent(p.Body)
}
