package shopx_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/memstore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func zapNop() *zap.Logger {
	return zap.NewNop()
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		w.Write([]byte("missing"))
	})

	r := httptest.NewRequest("GET", "/endpoint", &bytes.Buffer{})
	w := httptest.NewRecorder()

	shopx.Logger(zap.New(core)).Handler(h).ServeHTTP(w, r)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected '1' entry got '%d'", len(entries))
	}

	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected level 'warn' got '%s'", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["method"] != "GET" || fields["path"] != "/endpoint" {
		t.Fatalf("expected 'GET /endpoint' got '%v %v'", fields["method"], fields["path"])
	}
	if fields["status"] != int64(404) {
		t.Fatalf("expected status '404' got '%v'", fields["status"])
	}
	if fields["size"] != int64(7) {
		t.Fatalf("expected size '7' got '%v'", fields["size"])
	}
	if _, ok := fields["client"]; ok {
		t.Fatal("expected no client field without the Clients middleware")
	}
}

func TestLoggerRecordsClient(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	mux := shopx.NewServeMux()
	mux.Use(shopx.Logger(zap.New(core)))
	mux.Use(shopx.NewClients(memstore.New()))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})

	r := httptest.NewRequest("GET", "/", &bytes.Buffer{})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	entry := logs.All()[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected level 'info' got '%s'", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["status"] != int64(200) {
		t.Fatalf("expected status '200' got '%v'", fields["status"])
	}
	if fields["client"] != w.Result().Cookies()[0].Value {
		t.Fatalf("expected the client id got '%v'", fields["client"])
	}
}

func TestLoggerServerError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	shopx.Logger(zap.New(core)).Handler(h).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/checkout", nil))

	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Fatalf("expected '1' error entry got '%d'", n)
	}
}
