package shopx

import (
	"fmt"
	"strings"
	"time"
)

const (
	// CartKey is the storage key holding the persisted cart.
	CartKey = "cart"

	// SessionKey is the storage key holding the persisted SessionRecord.
	SessionKey = "user"
)

// Storage is the durable key/value area owned by one client (one browser).
// Every tab of that client sees the same Storage. Keys are namespaced with
// the client id before they reach the underlying Store.
type Storage struct {
	client      string
	store       Store
	lifetime    time.Duration
	quota       int
	broadcaster Broadcaster
}

// NewStorage returns the Storage area for client backed by store. A quota of
// zero disables the per-value size check.
func NewStorage(client string, store Store, lifetime time.Duration, quota int, b Broadcaster) *Storage {
	return &Storage{
		client:      client,
		store:       store,
		lifetime:    lifetime,
		quota:       quota,
		broadcaster: b,
	}
}

// Client returns the id of the client owning this area.
func (s *Storage) Client() string {
	return s.client
}

// GetItem returns the value stored under key.
func (s *Storage) GetItem(key string) ([]byte, bool, error) {
	return s.store.Get(s.storeKey(key))
}

// SetItem stores value under key. Values larger than the quota are rejected
// with ErrQuotaExceeded before reaching the Store.
func (s *Storage) SetItem(key string, value []byte) error {
	if s.quota > 0 && len(value) > s.quota {
		return fmt.Errorf("%s: %d bytes over a %d byte quota: %w", key, len(value), s.quota, ErrQuotaExceeded)
	}

	if err := s.store.Set(s.storeKey(key), value, time.Now().Add(s.lifetime)); err != nil {
		return err
	}
	s.publish(key)
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *Storage) RemoveItem(key string) error {
	if err := s.store.Delete(s.storeKey(key)); err != nil {
		return err
	}
	s.publish(key)
	return nil
}

func (s *Storage) publish(key string) {
	if s.broadcaster == nil {
		return
	}
	// a lost announcement only delays other instances until their next read
	_ = s.broadcaster.Publish(s.storeKey(key))
}

func (s *Storage) storeKey(key string) string {
	return s.client + ":" + key
}

// SplitStoreKey splits a namespaced store key into its client id and
// storage key.
func SplitStoreKey(storeKey string) (client, key string, ok bool) {
	return strings.Cut(storeKey, ":")
}
