package shopx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxQuantity is the largest quantity a single line item may hold.
const DefaultMaxQuantity = 99

// Cart holds the line items of one client and mirrors them to the client's
// Storage after every mutation.
//
// At most one line item exists per product: adding a product that is
// already present increments its quantity. Quantities are always at least
// one; setting a quantity of zero or less removes the item.
//
// All methods are safe for concurrent use. A mutation and the write of the
// snapshot it produced happen under the same lock, so the persisted record
// always reflects exactly one mutation. None of the methods return errors:
// persistence is best effort and failures are only logged.
type Cart struct {
	mu          sync.Mutex
	items       []LineItem
	storage     *Storage
	codec       Codec
	logger      *zap.Logger
	maxQuantity int
	lastUsed    time.Time
}

type cartConfig func(*Cart)

// WithCodec sets the codec used for the persisted record. (default JSONCodec)
func WithCodec(codec Codec) cartConfig {
	return cartConfig(func(c *Cart) {
		c.codec = codec
	})
}

// WithCartLogger sets the logger. (default no-op)
func WithCartLogger(logger *zap.Logger) cartConfig {
	return cartConfig(func(c *Cart) {
		c.logger = logger
	})
}

// WithMaxQuantity sets the per-item quantity cap. (default 99)
func WithMaxQuantity(max int) cartConfig {
	return cartConfig(func(c *Cart) {
		if max > 0 {
			c.maxQuantity = max
		}
	})
}

// NewCart creates a cart backed by storage and hydrates it from the
// persisted record. A missing or unreadable record yields an empty cart.
// Hydration never writes back to storage.
func NewCart(storage *Storage, cfgs ...cartConfig) *Cart {
	c := &Cart{
		storage:     storage,
		codec:       JSONCodec{},
		logger:      zap.NewNop(),
		maxQuantity: DefaultMaxQuantity,
		lastUsed:    time.Now(),
	}

	for _, cfg := range cfgs {
		cfg(c)
	}

	c.hydrate()
	return c
}

func (c *Cart) hydrate() {
	data, found, err := c.storage.GetItem(CartKey)
	if err != nil {
		c.logger.Warn("cart hydration failed, starting empty",
			zap.String("client", c.storage.Client()), zap.Error(err))
		return
	}
	if !found {
		return
	}

	items, err := c.codec.Decode(data)
	if err == nil {
		err = c.validate(items)
	}
	if err != nil {
		c.logger.Warn("discarding malformed persisted cart",
			zap.String("client", c.storage.Client()), zap.Error(err))
		return
	}
	c.items = items
}

func (c *Cart) validate(items []LineItem) error {
	seen := make(map[ProductID]struct{}, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("item %d: missing product id", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item %d: quantity %d", i, item.Quantity)
		}
		if item.Price < 0 {
			return fmt.Errorf("item %d: negative price", i)
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("item %d: duplicate product %s", i, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		if item.Quantity > c.maxQuantity {
			items[i].Quantity = c.maxQuantity
		}
	}
	return nil
}

// AddItem adds one unit of p. If p is already in the cart only its quantity
// changes; otherwise a new line item is appended with a snapshot of p.
func (c *Cart) AddItem(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(p.ID); i >= 0 {
		if c.items[i].Quantity < c.maxQuantity {
			c.items[i].Quantity++
		}
	} else {
		c.items = append(c.items, newLineItem(p))
	}
	c.persist()
}

// RemoveItem removes the line item for id. Removing a product that is not
// in the cart is a no-op.
func (c *Cart) RemoveItem(id ProductID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(id)
	c.persist()
}

// SetQuantity replaces the quantity of id. A quantity of zero or less
// removes the item; a quantity above the cap is clamped to it.
func (c *Cart) SetQuantity(id ProductID, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.remove(id)
	} else if i := c.indexOf(id); i >= 0 {
		c.items[i].Quantity = min(quantity, c.maxQuantity)
	}
	c.persist()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.persist()
}

// Settle removes what was ordered from the cart. Each ordered quantity is
// subtracted from the matching line item and items that reach zero are
// dropped; units added after ordered was taken stay in the cart. The cart
// is persisted once.
func (c *Cart) Settle(ordered []LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range ordered {
		i := c.indexOf(o.ProductID)
		if i < 0 {
			continue
		}
		if c.items[i].Quantity <= o.Quantity {
			c.remove(o.ProductID)
		} else {
			c.items[i].Quantity -= o.Quantity
		}
	}
	c.persist()
}

// Total returns the sum of price times quantity over all line items.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, item := range c.items {
		total += item.Subtotal()
	}
	return total
}

// Count returns the number of units in the cart, not the number of
// distinct line items.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var count int
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	return items
}

// Snapshot returns items, total and count read under a single lock.
func (c *Cart) Snapshot() (items []LineItem, total float64, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items = make([]LineItem, len(c.items))
	copy(items, c.items)
	for _, item := range c.items {
		total += item.Subtotal()
		count += item.Quantity
	}
	return items, total, count
}

func (c *Cart) indexOf(id ProductID) int {
	for i := range c.items {
		if c.items[i].ProductID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(id ProductID) {
	if i := c.indexOf(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// persist writes the current items. Must be called with c.mu held.
func (c *Cart) persist() {
	c.lastUsed = time.Now()

	data, err := c.codec.Encode(c.items)
	if err != nil {
		c.logger.Error("cart encode failed", zap.String("client", c.storage.Client()), zap.Error(err))
		return
	}

	err = c.storage.SetItem(CartKey, data)
	switch {
	case err == nil:
	case errors.Is(err, ErrQuotaExceeded):
		c.logger.Warn("cart storage quota exceeded, continuing in memory",
			zap.String("client", c.storage.Client()), zap.Int("bytes", len(data)))
		if err := c.storage.RemoveItem(CartKey); err != nil {
			c.logger.Warn("failed to drop persisted cart", zap.String("client", c.storage.Client()), zap.Error(err))
		}
	default:
		c.logger.Warn("cart persist failed", zap.String("client", c.storage.Client()), zap.Error(err))
	}
}

func (c *Cart) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

func (c *Cart) touch() {
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
}
