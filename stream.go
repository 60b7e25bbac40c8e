package shopx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EventStream is an http.Handler serving Server-Sent Events to the open tabs
// of a client. Each tab receives a "session" event with the fresh chrome
// state on connect and again whenever the session of its client changes,
// so the navigation bar follows logins and logouts made in other tabs or
// other processes without a reload.
//
// The Clients middleware must run before it.
type EventStream struct {
	events    *SessionEvents
	chrome    *Chrome
	keepAlive time.Duration
}

// NewEventStream returns a stream fed by events.
func NewEventStream(events *SessionEvents, chrome *Chrome) *EventStream {
	return &EventStream{
		events:    events,
		chrome:    chrome,
		keepAlive: 25 * time.Second,
	}
}

// ServeHTTP holds the connection open until the client goes away.
func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	storage := StorageFrom(r)
	if storage == nil {
		http.Error(w, "no client", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// one pending signal is enough: the state is re-read when it is sent
	changed := make(chan struct{}, 1)
	unsubscribe := s.events.Subscribe(storage.Client(), func(SessionChange) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := s.send(w, storage); err != nil {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			if err := s.send(w, storage); err != nil {
				return
			}
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flush(w)
		}
	}
}

func (s *EventStream) send(w http.ResponseWriter, storage *Storage) error {
	data, err := json.Marshal(s.chrome.State(storage))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
