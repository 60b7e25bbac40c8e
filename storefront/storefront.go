// Package storefront wires the cart, the session guard and the backend
// client into the HTTP surface of the shop: catalog and cart endpoints for
// everyone, the login flow, the chrome state and its event stream, and the
// admin console behind the guard.
//
// Usage:
//
//	srv := storefront.New(api, clients, carts, guard, events, storefront.WithLogger(logger))
//	http.ListenAndServe(":3000", srv)
package storefront

import (
	"net/http"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/backend"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the storefront http.Handler.
type Server struct {
	api     *backend.Client
	clients *shopx.Clients
	carts   *shopx.CartRegistry
	guard   *shopx.Guard
	events  *shopx.SessionEvents
	chrome  *shopx.Chrome
	stream  *shopx.EventStream
	logger  *zap.Logger
	logins  *rateLimiter
	mux     *shopx.ServeMux
}

type serverConfig func(*Server)

// WithLogger sets the logger used for request logs and handler errors.
// (default no-op)
func WithLogger(logger *zap.Logger) serverConfig {
	return serverConfig(func(s *Server) {
		s.logger = logger
	})
}

// WithLoginRate limits login attempts per client ip to r with bursts of b.
// (default 10 per minute, burst 5)
func WithLoginRate(r rate.Limit, b int) serverConfig {
	return serverConfig(func(s *Server) {
		s.logins = newRateLimiter(r, b)
	})
}

// New builds the storefront. clients must be the same Clients whose
// Storage the carts and the guard read.
func New(api *backend.Client, clients *shopx.Clients, carts *shopx.CartRegistry, guard *shopx.Guard, events *shopx.SessionEvents, cfgs ...serverConfig) *Server {
	s := &Server{
		api:     api,
		clients: clients,
		carts:   carts,
		guard:   guard,
		events:  events,
		chrome:  shopx.NewChrome(guard),
		logger:  zap.NewNop(),
		logins:  newRateLimiter(rate.Every(time.Minute/10), 5),
	}

	for _, cfg := range cfgs {
		cfg(s)
	}

	s.stream = shopx.NewEventStream(events, s.chrome)
	s.mux = s.routes()
	return s
}

// PeriodicCleanUp runs a loop that periodically forgets the login rate
// limits of client ips not seen for longer than idle. The loop returns when
// stop is closed or receives.
func (s *Server) PeriodicCleanUp(interval, idle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logins.forgetIdle(idle)
		case <-stop:
			return
		}
	}
}

// ServeHTTP dispatches r through the storefront routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() *shopx.ServeMux {
	mux := shopx.NewServeMux()
	mux.Use(shopx.Logger(s.logger))
	mux.Use(s.clients)

	catalog := mux.Group("/api/catalog", shopx.ETag(true))
	catalog.HandleFunc("GET /products", s.listProducts)
	catalog.HandleFunc("GET /products/{id}", s.getProduct)
	catalog.HandleFunc("GET /categories", s.listCategories)

	mux.HandleFunc("GET /cart", s.getCart)
	mux.HandleFunc("POST /cart/items", s.addCartItem)
	mux.HandleFunc("PUT /cart/items/{id}", s.setCartQuantity)
	mux.HandleFunc("DELETE /cart/items/{id}", s.removeCartItem)
	mux.HandleFunc("DELETE /cart", s.clearCart)
	mux.HandleFunc("POST /checkout", s.checkout)

	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /logout", s.logout)

	mux.HandleFunc("GET /nav", s.nav)
	mux.Handle("GET /events", s.stream)

	admin := mux.Group("/admin", s.guard.Require(shopx.RoleAdmin))
	s.adminRoutes(admin)

	return mux
}

func (s *Server) nav(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chrome.State(shopx.StorageFrom(r)))
}
