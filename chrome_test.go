package shopx_test

import (
	"testing"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/memstore"
)

func TestChromeState(t *testing.T) {
	storage := newStorage("c1", memstore.New())
	chrome := shopx.NewChrome(shopx.NewGuard(shopx.NewSessionEvents(nil)))

	if s := chrome.State(storage); s.Nav != shopx.NavPublic {
		t.Fatalf("expected '%s' got '%s'", shopx.NavPublic, s.Nav)
	}

	saveSession(t, storage, shopx.RoleUser)
	if s := chrome.State(storage); s.Nav != shopx.NavUser || s.Name != "Ada" {
		t.Fatalf("expected user chrome got '%+v'", s)
	}

	saveSession(t, storage, "Admin")
	if s := chrome.State(storage); s.Nav != shopx.NavAdmin {
		t.Fatalf("expected '%s' got '%s'", shopx.NavAdmin, s.Nav)
	}

	shopx.ClearSession(storage)
	if s := chrome.State(storage); s.Nav != shopx.NavPublic {
		t.Fatalf("expected '%s' got '%s'", shopx.NavPublic, s.Nav)
	}
}

func TestChromeErasesCorruptSession(t *testing.T) {
	storage := newStorage("c1", memstore.New())
	storage.SetItem(shopx.SessionKey, []byte("garbage"))

	chrome := shopx.NewChrome(shopx.NewGuard(shopx.NewSessionEvents(nil)))

	if s := chrome.State(storage); s.Nav != shopx.NavPublic {
		t.Fatalf("expected '%s' got '%s'", shopx.NavPublic, s.Nav)
	}
	if _, found, _ := storage.GetItem(shopx.SessionKey); found {
		t.Fatal("expected the corrupt record to be erased")
	}
}
