// Package redisstore provides a redis Store implementation.
//
// RedisStore stores, retrieves and deletes client records keyed by a
// string. Expiration is delegated to redis key TTLs. When redis runs out of
// memory under its maxmemory policy, writes fail with an error wrapping
// shopx.ErrQuotaExceeded.
//
// The package also provides a Broadcaster over redis pub/sub, so several
// storefront instances sharing one redis see each other's session writes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel used for storage announcements.
const DefaultChannel = "shopx:storage"

// RedisStore is a redis backed storage for client records.
type RedisStore struct {
	rdb *redis.Client
}

// New creates and returns a new RedisStore instance.
func New(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb}
}

// Get retrieves the data associated with the given key. Returns the data,
// a boolean indicating whether the key was found and not expired, and an
// error.
func (s *RedisStore) Get(key string) ([]byte, bool, error) {
	data, err := s.rdb.Get(context.Background(), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []byte{}, false, nil
		}
		return []byte{}, false, err
	}

	return data, true, nil
}

// Set stores the data under the given key with an expiration time. If a
// record with the same key already exists, it is overwritten.
func (s *RedisStore) Set(key string, data []byte, expiresAt time.Time) error {
	err := s.rdb.Set(context.Background(), key, data, time.Until(expiresAt)).Err()
	if isOOM(err) {
		return fmt.Errorf("redisstore: %w: %v", shopx.ErrQuotaExceeded, err)
	}
	return err
}

// Delete removes the data associated with the given key. If the key does
// not exist, this is a no-op.
func (s *RedisStore) Delete(key string) error {
	return s.rdb.Del(context.Background(), key).Err()
}

func isOOM(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "OOM ")
}

// Broadcaster announces storage keys on a redis pub/sub channel.
type Broadcaster struct {
	rdb     *redis.Client
	channel string
}

var _ shopx.Broadcaster = &Broadcaster{}

// NewBroadcaster returns a Broadcaster using channel, or DefaultChannel
// when channel is empty.
func NewBroadcaster(rdb *redis.Client, channel string) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{rdb: rdb, channel: channel}
}

// Publish announces key to every listener, this process included.
func (b *Broadcaster) Publish(key string) error {
	return b.rdb.Publish(context.Background(), b.channel, key).Err()
}

// Listen subscribes to the channel and calls fn for every announced key
// until stop is closed. It returns once the subscription is torn down, or
// early with an error if the subscription could not be established.
func (b *Broadcaster) Listen(stop <-chan struct{}, fn func(key string)) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	// wait for the subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-stop:
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}
