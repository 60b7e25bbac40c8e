package shopx

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CartRegistry keeps one Cart per client for the lifetime of the process.
// A client's cart is hydrated from storage the first time it is requested
// and served from memory afterwards.
type CartRegistry struct {
	carts sync.Map
	group singleflight.Group
	cfgs  []cartConfig
}

// NewCartRegistry returns a registry that builds carts with cfgs.
func NewCartRegistry(cfgs ...cartConfig) *CartRegistry {
	return &CartRegistry{cfgs: cfgs}
}

// Get returns the cart of the client owning storage, hydrating it on first
// use. Concurrent first requests for the same client share one hydration.
func (r *CartRegistry) Get(storage *Storage) *Cart {
	client := storage.Client()
	if c, ok := r.carts.Load(client); ok {
		cart := c.(*Cart)
		cart.touch()
		return cart
	}

	v, _, _ := r.group.Do(client, func() (any, error) {
		if c, ok := r.carts.Load(client); ok {
			return c, nil
		}
		cart := NewCart(storage, r.cfgs...)
		r.carts.Store(client, cart)
		return cart, nil
	})
	return v.(*Cart)
}

// Count returns the number of carts held in memory.
func (r *CartRegistry) Count() int {
	n := 0
	r.carts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// PeriodicCleanUp runs a loop that periodically evicts carts that were not
// used for longer than idle. Evicted carts are hydrated again from storage
// on their next use. The loop returns when stop is closed or receives.
//
// Example usage:
//
//	stop := make(chan struct{})
//	go registry.PeriodicCleanUp(time.Minute, 30*time.Minute, stop)
//	...
//	close(stop)
func (r *CartRegistry) PeriodicCleanUp(interval, idle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(idle)
		case <-stop:
			return
		}
	}
}

func (r *CartRegistry) evictIdle(idle time.Duration) {
	r.carts.Range(func(key, value any) bool {
		if time.Since(value.(*Cart).idleSince()) > idle {
			r.carts.Delete(key)
		}
		return true
	})
}
