// Package memstore provides an in-memory Store implementation.
//
// Memstore keeps records keyed by a string in process memory. Each record
// has an expiration time, and the store supports periodic cleanup of
// expired records. An optional capacity bounds the total number of bytes
// held; writes past it fail with shopx.ErrQuotaExceeded.
//
// This package is suitable for single-process deployments or testing. It
// is not persistent and does not share state across processes.
package memstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/bluescreen10/shopx"
)

// Memstore is an in-memory storage for client records.
// It is safe for concurrent use by multiple goroutines.
type Memstore struct {
	mu       sync.Mutex
	records  map[string]record
	used     int
	capacity int
}

// record represents a single stored value and its expiration time.
type record struct {
	expiresAt time.Time
	data      []byte
}

// New creates and returns a new Memstore without a capacity limit.
func New() *Memstore {
	return &Memstore{records: make(map[string]record)}
}

// NewWithCapacity creates a Memstore holding at most capacity bytes of
// record data.
func NewWithCapacity(capacity int) *Memstore {
	m := New()
	m.capacity = capacity
	return m
}

// Get retrieves the data associated with the given key. Returns the data,
// a boolean indicating whether the key was found and not expired, and an
// error. If the record has expired, it is deleted and Get returns false.
func (m *Memstore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return []byte{}, false, nil
	}

	if time.Now().After(rec.expiresAt) {
		m.delete(key)
		return []byte{}, false, nil
	}

	return rec.data, true, nil
}

// Set stores the data under the given key with an expiration time. If a
// record with the same key already exists, it is overwritten. When the
// write would take the store past its capacity, nothing is written and
// the error wraps shopx.ErrQuotaExceeded.
func (m *Memstore) Set(key string, data []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.used - len(m.records[key].data) + len(data)
	if m.capacity > 0 && used > m.capacity {
		return fmt.Errorf("memstore: %d of %d bytes in use: %w", m.used, m.capacity, shopx.ErrQuotaExceeded)
	}

	m.records[key] = record{expiresAt: expiresAt, data: append([]byte(nil), data...)}
	m.used = used
	return nil
}

// Delete removes the data associated with the given key. If the key does
// not exist, this is a no-op.
func (m *Memstore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.delete(key)
	return nil
}

// Count returns the number of records held, expired ones included until
// they are cleaned up.
func (m *Memstore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// PeriodicCleanUp runs a loop that periodically deletes expired records.
// The cleanup runs every interval duration until a value is received on
// the stop channel, at which point the loop returns.
//
// Example usage:
//
//	stop := make(chan struct{})
//	go store.PeriodicCleanUp(time.Minute, stop)
//	...
//	close(stop) // stop the cleanup
func (m *Memstore) PeriodicCleanUp(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.deleteExpired()
		case <-stop:
			return
		}
	}
}

// deleteExpired removes all expired records.
func (m *Memstore) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, rec := range m.records {
		if now.After(rec.expiresAt) {
			m.delete(key)
		}
	}
}

// delete must be called with m.mu held.
func (m *Memstore) delete(key string) {
	if rec, ok := m.records[key]; ok {
		m.used -= len(rec.data)
		delete(m.records, key)
	}
}
