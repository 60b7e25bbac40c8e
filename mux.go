package shopx

import (
	"net/http"
	"strings"
)

// ServeMux is a wrapper around http.ServeMux that adds route groups with
// their own middleware chain, used to put the admin views behind the guard.
//
// Usage:
//
//	mux := shopx.NewServeMux()
//	mux.Use(clients)
//
//	admin := mux.Group("/admin", guard.Require(shopx.RoleAdmin))
//	admin.HandleFunc("GET /products", listProducts)
//
//	http.ListenAndServe(":8080", mux)
type ServeMux struct {
	*http.ServeMux
	middlewares []Middleware
}

// NewServeMux creates a new ServeMux instance.
func NewServeMux() *ServeMux {
	return &ServeMux{
		ServeMux: http.NewServeMux(),
	}
}

// Group creates a sub-router mounted under prefix. Requests reaching it run
// through middlewares in order, then through the sub-router, which sees the
// path with prefix stripped.
func (mux *ServeMux) Group(prefix string, middlewares ...Middleware) *ServeMux {
	prefix = strings.TrimSuffix(prefix, "/")
	subMux := NewServeMux()

	var wrapped http.Handler = subMux

	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i].Handler(wrapped)
	}

	mux.Handle(prefix+"/", http.StripPrefix(prefix, wrapped))
	return subMux
}

// Use adds a middleware applied to every route of this mux.
func (mux *ServeMux) Use(mw Middleware) {
	mux.middlewares = append(mux.middlewares, mw)
}

// ServeHTTP implements http.Handler and applies the middlewares
// before dispatching to the underlying http.ServeMux.
func (mux *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var wrapped http.Handler = mux.ServeMux

	for i := len(mux.middlewares) - 1; i >= 0; i-- {
		wrapped = mux.middlewares[i].Handler(wrapped)
	}

	wrapped.ServeHTTP(w, r)
}
