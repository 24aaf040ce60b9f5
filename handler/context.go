package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/bookkeeper/pkg/session"
)

// Identity is the authenticated user of a request.
type Identity struct {
	UserID   int64
	UserName string
}

// Context is the request context handed to every HandlerFunc.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// Identity reports the authenticated user, if any.
	Identity() (Identity, bool)
}

func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{w: w, r: r}
}

type httpContext struct {
	w http.ResponseWriter
	r *http.Request
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }

func (c *httpContext) Identity() (Identity, bool) {
	s, ok := session.FromContext(c.r.Context())
	if !ok || !s.IsAuthenticated() {
		return Identity{}, false
	}
	return Identity{UserID: s.UserID, UserName: s.UserName}, true
}

func (c *httpContext) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }
func (c *httpContext) Done() <-chan struct{}       { return c.r.Context().Done() }
func (c *httpContext) Err() error                  { return c.r.Context().Err() }
func (c *httpContext) Value(key any) any           { return c.r.Context().Value(key) }
