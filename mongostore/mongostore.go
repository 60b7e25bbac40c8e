// Package mongostore provides a MongoDB Store implementation.
//
// Records live in a single collection, one document per key. A TTL index
// on expires_at lets MongoDB delete expired documents on its own, and Get
// filters on expiry as well because the TTL monitor only runs about once
// a minute. Writes larger than the BSON document limit fail with an error
// wrapping shopx.ErrQuotaExceeded.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluescreen10/shopx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the collection used by New.
const DefaultCollection = "client_records"

// maxDocumentSize is the BSON document limit, minus room for the key and
// the expiry.
const maxDocumentSize = 16<<20 - 1024

type document struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type MongoStore struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// New returns a store keeping its records in the DefaultCollection of db.
// It creates the TTL index if it is missing.
func New(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		coll:    db.Collection(DefaultCollection),
		timeout: 5 * time.Second,
	}
	return s, s.createIndexes(ctx)
}

// Get retrieves the data associated with the given key. Returns the data,
// a boolean indicating whether the key was found and not expired, and an
// error.
func (s *MongoStore) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": time.Now()}}

	var doc document
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc.Data, true, nil
}

// Set stores the data under the given key with an expiration time. If a
// record with the same key already exists, it is overwritten.
func (s *MongoStore) Set(key string, data []byte, expiresAt time.Time) error {
	if len(data) > maxDocumentSize {
		return fmt.Errorf("mongostore: %d bytes: %w", len(data), shopx.ErrQuotaExceeded)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	doc := document{Key: key, Data: data, ExpiresAt: expiresAt.UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// Delete removes the data associated with the given key.
func (s *MongoStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	}
	if _, err := s.coll.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create ttl index: %w", err)
	}
	return nil
}

// Connect opens a client for uri and returns the named database.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
