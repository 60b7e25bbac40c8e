package shopx_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/memstore"
	"github.com/golang-jwt/jwt/v4"
)

func saveSession(t *testing.T, storage *shopx.Storage, role shopx.Role) {
	t.Helper()
	if err := shopx.SaveSession(storage, &shopx.SessionRecord{Role: role, Name: "Ada"}); err != nil {
		t.Fatal(err)
	}
}

func TestGuardAuthorizesAdmin(t *testing.T) {
	storage := newStorage("c1", memstore.New())
	saveSession(t, storage, "admin")

	guard := shopx.NewGuard(shopx.NewSessionEvents(nil))
	d := guard.Check(storage, "/admin/orders", shopx.RoleAdmin)

	if d.Outcome != shopx.Authorized {
		t.Fatalf("expected '%v' got '%v'", shopx.Authorized, d.Outcome)
	}
	if d.Redirect != "" {
		t.Fatalf("expected no redirect got '%s'", d.Redirect)
	}
	if d.Session == nil || d.Session.Name != "Ada" {
		t.Fatalf("expected the session record got '%v'", d.Session)
	}
}

func TestGuardRoleMismatch(t *testing.T) {
	storage := newStorage("c1", memstore.New())
	saveSession(t, storage, shopx.RoleUser)

	guard := shopx.NewGuard(shopx.NewSessionEvents(nil))
	d := guard.Check(storage, "/admin/orders", shopx.RoleAdmin)

	if d.Outcome != shopx.DeniedLogin {
		t.Fatalf("expected '%v' got '%v'", shopx.DeniedLogin, d.Outcome)
	}
	if d.Redirect != "/login" {
		t.Fatalf("expected '/login' got '%s'", d.Redirect)
	}
	if _, found, _ := storage.GetItem(shopx.SessionKey); found {
		t.Fatal("expected the session record to be erased")
	}
}

func TestGuardNoSession(t *testing.T) {
	storage := newStorage("c1", memstore.New())

	guard := shopx.NewGuard(shopx.NewSessionEvents(nil), shopx.WithLoginPath("/signin"))
	d := guard.Check(storage, "/admin/reports?year=2026", shopx.RoleAdmin)

	if d.Outcome != shopx.DeniedWithReturn {
		t.Fatalf("expected '%v' got '%v'", shopx.DeniedWithReturn, d.Outcome)
	}
	expected := "/signin?redirect=%2Fadmin%2Freports%3Fyear%3D2026"
	if d.Redirect != expected {
		t.Fatalf("expected '%s' got '%s'", expected, d.Redirect)
	}
}

func TestGuardErasesCorruptSession(t *testing.T) {
	records := map[string]string{
		"not json":   `{"role":`,
		"no role":    `{"name":"Ada"}`,
		"blank":      `{"role":"  "}`,
		"wrong type": `{"role":7}`,
	}

	for name, record := range records {
		t.Run(name, func(t *testing.T) {
			storage := newStorage("c1", memstore.New())
			storage.SetItem(shopx.SessionKey, []byte(record))

			events := shopx.NewSessionEvents(nil)
			var notified atomic.Int32
			events.Subscribe("c1", func(c shopx.SessionChange) {
				if c.Source == shopx.SourceGuard {
					notified.Add(1)
				}
			})

			guard := shopx.NewGuard(events)
			d := guard.Check(storage, "/admin", shopx.RoleAdmin)

			if d.Outcome != shopx.DeniedWithReturn {
				t.Fatalf("expected '%v' got '%v'", shopx.DeniedWithReturn, d.Outcome)
			}
			if _, found, _ := storage.GetItem(shopx.SessionKey); found {
				t.Fatal("expected the corrupt record to be erased")
			}
			if notified.Load() != 1 {
				t.Fatalf("expected '1' notification got '%d'", notified.Load())
			}
		})
	}
}

func TestGuardExpiredToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ada",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	storage := newStorage("c1", memstore.New())
	shopx.SaveSession(storage, &shopx.SessionRecord{Role: shopx.RoleAdmin, Token: token})

	guard := shopx.NewGuard(shopx.NewSessionEvents(nil))
	if d := guard.Check(storage, "/admin", shopx.RoleAdmin); d.Outcome != shopx.DeniedWithReturn {
		t.Fatalf("expected '%v' got '%v'", shopx.DeniedWithReturn, d.Outcome)
	}
}

func TestGuardValidToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	storage := newStorage("c1", memstore.New())
	shopx.SaveSession(storage, &shopx.SessionRecord{Role: shopx.RoleAdmin, Token: token})

	guard := shopx.NewGuard(shopx.NewSessionEvents(nil))
	if d := guard.Check(storage, "/admin", shopx.RoleAdmin); d.Outcome != shopx.Authorized {
		t.Fatalf("expected '%v' got '%v'", shopx.Authorized, d.Outcome)
	}
}

// Two tabs share one client and so one Storage. A logout in the first tab
// must deny the next protected check in the second.
func TestGuardSeesLogoutFromOtherTab(t *testing.T) {
	store := memstore.New()
	tab1 := newStorage("c1", store)
	tab2 := newStorage("c1", store)
	saveSession(t, tab1, shopx.RoleAdmin)

	guard := shopx.NewGuard(shopx.NewSessionEvents(nil))
	if d := guard.Check(tab2, "/admin", shopx.RoleAdmin); d.Outcome != shopx.Authorized {
		t.Fatalf("expected '%v' got '%v'", shopx.Authorized, d.Outcome)
	}

	if err := shopx.ClearSession(tab1); err != nil {
		t.Fatal(err)
	}

	if d := guard.Check(tab2, "/admin", shopx.RoleAdmin); d.Outcome != shopx.DeniedWithReturn {
		t.Fatalf("expected '%v' got '%v'", shopx.DeniedWithReturn, d.Outcome)
	}
}

func TestRequireMiddleware(t *testing.T) {
	store := memstore.New()
	clients := shopx.NewClients(store)
	guard := shopx.NewGuard(shopx.NewSessionEvents(nil))

	var seen *shopx.SessionRecord
	mux := shopx.NewServeMux()
	mux.Use(clients)
	admin := mux.Group("/admin", guard.Require(shopx.RoleAdmin))
	admin.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		seen = shopx.SessionFrom(r)
		w.Write([]byte("orders"))
	})

	r := httptest.NewRequest("GET", "/admin/orders", &bytes.Buffer{})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected '%d' got '%d'", http.StatusSeeOther, w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=%2Fadmin%2Forders" {
		t.Fatalf("expected redirect with return path got '%s'", loc)
	}

	cookie := w.Result().Cookies()[0]
	saveSession(t, clients.Storage(cookie.Value), shopx.RoleAdmin)

	r = httptest.NewRequest("GET", "/admin/orders", &bytes.Buffer{})
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK || w.Body.String() != "orders" {
		t.Fatalf("expected '200 orders' got '%d %s'", w.Code, w.Body.String())
	}
	if seen == nil || !seen.Role.Is(shopx.RoleAdmin) {
		t.Fatalf("expected the admin session in context got '%v'", seen)
	}
}

func TestOutcomeString(t *testing.T) {
	if s := shopx.DeniedWithReturn.String(); s != "denied_with_return" {
		t.Fatalf("expected 'denied_with_return' got '%s'", s)
	}
}
