// Clients is a middleware that identifies the browser behind a request and
// attaches that browser's durable Storage to the request context. A client
// id cookie plays the role a browser origin plays for localStorage: every
// tab of the same browser sends the same id and so shares one Storage.
//
// Designed after the cookie handling of https://github.com/alexedwards/scs
//
// Usage:
//
//	store := memstore.New()
//	clients := shopx.NewClients(store, shopx.WithQuota(5<<20))
//
//	mux := shopx.NewServeMux()
//	mux.Use(clients)
//	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
//	    cart := registry.Get(shopx.StorageFrom(r))
//	    fmt.Fprintf(w, "%d items\n", cart.Count())
//	})
package shopx

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type (
	storageKey    struct{}
	clientSlotKey struct{}
)

// Clients manages client ids and hands out their Storage.
type Clients struct {
	store          Store
	broadcaster    Broadcaster
	lifetime       time.Duration
	quota          int
	cookieName     string
	cookiePath     string
	cookieDomain   string
	cookieSecure   bool
	cookieSameSite http.SameSite
}

type clientsConfig func(*Clients)

// WithLifetime sets how long stored records and the client cookie live.
// (default 30 days)
func WithLifetime(lifetime time.Duration) clientsConfig {
	return clientsConfig(func(c *Clients) {
		c.lifetime = lifetime
	})
}

// WithQuota sets the largest value, in bytes, a client may store under a
// single key. (default 5MiB, 0 disables)
func WithQuota(bytes int) clientsConfig {
	return clientsConfig(func(c *Clients) {
		c.quota = bytes
	})
}

// WithBroadcaster announces every storage write through b.
func WithBroadcaster(b Broadcaster) clientsConfig {
	return clientsConfig(func(c *Clients) {
		c.broadcaster = b
	})
}

// WithCookieName sets the client id cookie name. (default "client_id")
func WithCookieName(name string) clientsConfig {
	return clientsConfig(func(c *Clients) {
		c.cookieName = name
	})
}

// WithDomain sets the cookie domain. (default "")
func WithDomain(domain string) clientsConfig {
	return clientsConfig(func(c *Clients) {
		c.cookieDomain = domain
	})
}

// WithSecure sets the Secure flag on the cookie. (default false)
func WithSecure(secure bool) clientsConfig {
	return clientsConfig(func(c *Clients) {
		c.cookieSecure = secure
	})
}

// NewClients creates a Clients middleware storing client data in store.
func NewClients(store Store, cfgs ...clientsConfig) *Clients {
	c := &Clients{
		store:          store,
		lifetime:       30 * 24 * time.Hour,
		quota:          5 << 20,
		cookieName:     "client_id",
		cookiePath:     "/",
		cookieSameSite: http.SameSiteLaxMode,
	}

	for _, cfg := range cfgs {
		cfg(c)
	}

	return c
}

// Handler reads or issues the client id cookie and stores the client's
// Storage in the request context.
func (c *Clients) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Cookie")

		var id string
		if cookie, err := r.Cookie(c.cookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = newClientID()
		}

		c.writeCookie(w, id)

		if slot, ok := r.Context().Value(clientSlotKey{}).(*string); ok {
			*slot = id
		}

		ctx := context.WithValue(r.Context(), storageKey{}, c.Storage(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Storage returns the Storage area of client id.
func (c *Clients) Storage(id string) *Storage {
	return NewStorage(id, c.store, c.lifetime, c.quota, c.broadcaster)
}

// StorageFrom returns the Storage attached by the Clients middleware, or
// nil when the middleware did not run.
func StorageFrom(r *http.Request) *Storage {
	s, _ := r.Context().Value(storageKey{}).(*Storage)
	return s
}

func (c *Clients) writeCookie(w http.ResponseWriter, id string) {
	expiresAt := time.Now().Add(c.lifetime)
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    id,
		Path:     c.cookiePath,
		Domain:   c.cookieDomain,
		Secure:   c.cookieSecure,
		HttpOnly: true,
		SameSite: c.cookieSameSite,
		Expires:  time.Unix(expiresAt.Unix()+1, 0),
		MaxAge:   int(c.lifetime.Seconds()),
	})
}

// withClientSlot lets an outer middleware learn the client id resolved
// further down the chain.
func withClientSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, clientSlotKey{}, slot)
}

func newClientID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
