package shopx_test

import (
	"slices"
	"sync"
	"time"

	"github.com/bluescreen10/shopx"
)

type mockstore struct {
	get    func(string) ([]byte, bool, error)
	set    func(string, []byte, time.Time) error
	delete func(string) error
}

func (s *mockstore) Get(key string) ([]byte, bool, error) {
	return s.get(key)
}

func (s *mockstore) Set(key string, data []byte, expiresAt time.Time) error {
	return s.set(key, data, expiresAt)
}

func (s *mockstore) Delete(key string) error {
	return s.delete(key)
}

var _ shopx.Store = &mockstore{}

// recordingStore is a map backed mockstore counting writes and deletes.
type recordingStore struct {
	mockstore
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	deletes int
}

func newRecordingStore() *recordingStore {
	s := &recordingStore{data: make(map[string][]byte)}
	s.get = func(key string) ([]byte, bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		d, ok := s.data[key]
		return d, ok, nil
	}
	s.set = func(key string, data []byte, _ time.Time) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sets++
		s.data[key] = data
		return nil
	}
	s.delete = func(key string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.deletes++
		delete(s.data, key)
		return nil
	}
	return s
}

func (s *recordingStore) writes() (sets, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets, s.deletes
}

func (s *recordingStore) raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	return d, ok
}

// fakeBroadcaster delivers published keys to every listener in process.
type fakeBroadcaster struct {
	mu        sync.Mutex
	published []string
	listeners []func(string)
}

func (b *fakeBroadcaster) Publish(key string) error {
	b.mu.Lock()
	b.published = append(b.published, key)
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(key)
	}
	return nil
}

func (b *fakeBroadcaster) Listen(stop <-chan struct{}, fn func(key string)) error {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
	<-stop
	return nil
}

func (b *fakeBroadcaster) listening() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func newStorage(client string, store shopx.Store) *shopx.Storage {
	return shopx.NewStorage(client, store, time.Hour, 0, nil)
}
