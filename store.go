package shopx

import (
	"errors"
	"time"
)

// ErrQuotaExceeded is returned by a Store or a Storage when a write does not
// fit in the space available to it. Backends wrap their own capacity errors
// with it so callers can test with errors.Is.
var ErrQuotaExceeded = errors.New("shopx: storage quota exceeded")

// Store defines the interface for durable storage backends.
// A Store persists opaque records by key. Implementations may store
// them in memory, databases, caches, or any other durable storage system.
type Store interface {
	// Get retrieves the data associated with the given key.
	// It returns the raw data, a boolean indicating whether
	// the record was found, and an error if the lookup failed.
	Get(key string) (data []byte, found bool, err error)

	// Set stores the data for the given key until the specified
	// expiration time. If a record with the same key already exists,
	// it should be overwritten.
	Set(key string, data []byte, expiresAt time.Time) error

	// Delete removes the record associated with the given key.
	// It should not return an error if the record does not exist.
	Delete(key string) error
}

// Broadcaster fans storage changes out to every process sharing the same
// Store, so a write made through one instance is observable by the others.
type Broadcaster interface {
	// Publish announces that key changed.
	Publish(key string) error

	// Listen calls fn for every key announced by any process until stop
	// is closed.
	Listen(stop <-chan struct{}, fn func(key string)) error
}
