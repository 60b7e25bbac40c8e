package shopx

import "net/http"

// Middleware defines the interface for HTTP middleware compatible with ServeMux.
type Middleware interface {
	Handler(http.Handler) http.Handler
}

// MiddlewareFunc adapts an ordinary function to the Middleware interface.
type MiddlewareFunc func(http.Handler) http.Handler

// Handler calls f(next).
func (f MiddlewareFunc) Handler(next http.Handler) http.Handler {
	return f(next)
}
