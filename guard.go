package shopx

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Outcome is the result of evaluating a protected navigation.
type Outcome int

const (
	// Authorized means the protected view may render.
	Authorized Outcome = iota

	// DeniedLogin means the session holds the wrong role; the client is
	// sent to the login view without a return path.
	DeniedLogin

	// DeniedWithReturn means there is no usable session; the client is
	// sent to the login view carrying the requested path.
	DeniedWithReturn
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case DeniedLogin:
		return "denied"
	case DeniedWithReturn:
		return "denied_with_return"
	default:
		return "unknown"
	}
}

// Decision is what the routing layer acts upon. Redirect is empty when
// the outcome is Authorized.
type Decision struct {
	Outcome  Outcome
	Redirect string
	Session  *SessionRecord
}

type sessionKey struct{}

// Guard gates protected views on the role stored in the client's session
// record. It never caches: every check reads the record from storage again,
// since another tab or process may have changed it since the last check.
type Guard struct {
	events    *SessionEvents
	logger    *zap.Logger
	loginPath string
}

type guardConfig func(*Guard)

// WithLoginPath sets the path of the login view. (default "/login")
func WithLoginPath(path string) guardConfig {
	return guardConfig(func(g *Guard) {
		g.loginPath = path
	})
}

// WithGuardLogger sets the logger. (default no-op)
func WithGuardLogger(logger *zap.Logger) guardConfig {
	return guardConfig(func(g *Guard) {
		g.logger = logger
	})
}

// NewGuard returns a Guard that reports erased records to events.
func NewGuard(events *SessionEvents, cfgs ...guardConfig) *Guard {
	g := &Guard{
		events:    events,
		logger:    zap.NewNop(),
		loginPath: "/login",
	}

	for _, cfg := range cfgs {
		cfg(g)
	}

	return g
}

// Session reads the session record of storage. A record that cannot be
// parsed is treated as absent and erased.
func (g *Guard) Session(storage *Storage) (*SessionRecord, bool) {
	data, found, err := storage.GetItem(SessionKey)
	if err != nil {
		g.logger.Warn("session read failed", zap.String("client", storage.Client()), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	rec, err := ParseSessionRecord(data)
	if err != nil {
		g.logger.Warn("erasing unusable session record",
			zap.String("client", storage.Client()), zap.Error(err))
		g.erase(storage)
		return nil, false
	}
	return rec, true
}

// Check evaluates a navigation to path, which requires role.
func (g *Guard) Check(storage *Storage, path string, role Role) Decision {
	rec, ok := g.Session(storage)
	if !ok {
		return Decision{
			Outcome:  DeniedWithReturn,
			Redirect: g.loginPath + "?redirect=" + url.QueryEscape(path),
		}
	}

	if !rec.Role.Is(role) {
		g.logger.Info("role mismatch on protected view",
			zap.String("client", storage.Client()),
			zap.String("path", path),
			zap.String("have", string(rec.Role)),
			zap.String("want", string(role)))
		g.erase(storage)
		return Decision{Outcome: DeniedLogin, Redirect: g.loginPath}
	}

	return Decision{Outcome: Authorized, Session: rec}
}

// Require returns a middleware that only lets requests through when the
// client's session holds role. Denied requests are redirected with
// 303 See Other; authorized ones carry the session, see SessionFrom. The
// Clients middleware must run first.
func (g *Guard) Require(role Role) Middleware {
	return MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			storage := StorageFrom(r)
			if storage == nil {
				http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
				return
			}

			// RequestURI survives http.StripPrefix inside route groups
			path := r.RequestURI
			if path == "" {
				path = r.URL.RequestURI()
			}

			d := g.Check(storage, path, role)
			if d.Outcome != Authorized {
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, d.Session)))
		})
	})
}

// SessionFrom returns the session record the guard authorized the request
// with, or nil outside a guarded route.
func SessionFrom(r *http.Request) *SessionRecord {
	rec, _ := r.Context().Value(sessionKey{}).(*SessionRecord)
	return rec
}

func (g *Guard) erase(storage *Storage) {
	if err := ClearSession(storage); err != nil {
		g.logger.Warn("failed to erase session record", zap.String("client", storage.Client()), zap.Error(err))
	}
	if g.events != nil {
		g.events.Notify(storage.Client(), SourceGuard)
	}
}
