package shopx_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/memstore"
)

func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventStreamFollowsSession(t *testing.T) {
	clients := shopx.NewClients(memstore.New())
	events := shopx.NewSessionEvents(nil)
	stream := shopx.NewEventStream(events, shopx.NewChrome(shopx.NewGuard(events)))

	mux := shopx.NewServeMux()
	mux.Use(shopx.Logger(zapNop()))
	mux.Use(clients)
	mux.Handle("GET /events", stream)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected 'text/event-stream' got '%s'", ct)
	}

	var client string
	for _, c := range resp.Cookies() {
		if c.Name == "client_id" {
			client = c.Value
		}
	}
	if client == "" {
		t.Fatal("expected a client id cookie")
	}

	body := bufio.NewReader(resp.Body)

	event, data := readEvent(t, body)
	if event != "session" || data != `{"nav":"public"}` {
		t.Fatalf("expected public chrome got '%s' '%s'", event, data)
	}

	saveSession(t, clients.Storage(client), shopx.RoleAdmin)
	events.Notify(client, shopx.SourceLogin)

	_, data = readEvent(t, body)
	if data != `{"nav":"admin","name":"Ada","role":"ADMIN"}` {
		t.Fatalf("expected admin chrome got '%s'", data)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for events.Subscribers(client) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the stream to unsubscribe once the client left")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventStreamWithoutClient(t *testing.T) {
	events := shopx.NewSessionEvents(nil)
	stream := shopx.NewEventStream(events, shopx.NewChrome(shopx.NewGuard(events)))

	w := httptest.NewRecorder()
	stream.ServeHTTP(w, httptest.NewRequest("GET", "/events", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected '%d' got '%d'", http.StatusBadRequest, w.Code)
	}
}
