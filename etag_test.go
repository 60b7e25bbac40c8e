package shopx_test

import (
	"bytes"
	"fmt"
	"hash/crc64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluescreen10/shopx"
)

var catalogPage = []byte(`[{"id":1,"name":"Dome Camera"}]`)

func catalogHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(catalogPage)
	})
}

func expectedETag(body []byte) string {
	return fmt.Sprintf(`"%x"`, crc64.Checksum(body, crc64.MakeTable(crc64.ECMA)))
}

func TestGenerateETag(t *testing.T) {
	handler := shopx.ETag(false).Handler(catalogHandler())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/products", &bytes.Buffer{})
	handler.ServeHTTP(w, r)

	if etag := w.Header().Get("ETag"); etag != expectedETag(catalogPage) {
		t.Fatalf("ETag expected '%s' header but got '%s'", expectedETag(catalogPage), etag)
	}
	if w.Body.String() != string(catalogPage) {
		t.Fatalf("expected body '%s' got '%s'", catalogPage, w.Body.String())
	}
}

func TestWeakETag(t *testing.T) {
	handler := shopx.ETag(true).Handler(catalogHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", &bytes.Buffer{}))

	if etag := w.Header().Get("ETag"); etag != "W/"+expectedETag(catalogPage) {
		t.Fatalf("expected weak ETag got '%s'", etag)
	}
}

func TestNotModified(t *testing.T) {
	handler := shopx.ETag(true).Handler(catalogHandler())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/products", &bytes.Buffer{})
	r.Header.Set("If-None-Match", `"other", `+expectedETag(catalogPage))

	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected status '304' got '%d'", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body got '%s'", w.Body.String())
	}
}

func TestETagSkipsErrors(t *testing.T) {
	handler := shopx.ETag(false).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products", &bytes.Buffer{}))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status '502' got '%d'", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != "" {
		t.Fatalf("expected no ETag got '%s'", etag)
	}
}

func TestETagIgnoresPost(t *testing.T) {
	handler := shopx.ETag(false).Handler(catalogHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/products", &bytes.Buffer{}))

	if etag := w.Header().Get("ETag"); etag != "" {
		t.Fatalf("expected no ETag got '%s'", etag)
	}
}
