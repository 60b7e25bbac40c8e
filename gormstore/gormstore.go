// Package gormstore provides a gorm Store implementation.
//
// GORMStore stores, retrieves and deletes client records keyed by a string
// in a relational table managed through gorm, so any gorm dialect works as
// a backend (sqlite and postgres are wired in the storefront binary). Each
// record has an expiration time, and the store supports periodic cleanup of
// expired records.
package gormstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluescreen10/shopx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMStore is a gorm backed storage for client records.
type GORMStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// clientRecord represents a single stored record, containing the data
// and its expiration time.
type clientRecord struct {
	StorageKey string `gorm:"primaryKey;size:128"`
	Data       []byte
	ExpiresAt  time.Time `gorm:"index"`
}

// New creates and returns a new GORMStore instance.
// If the client_records table doesn't exist it is created.
func New(db *gorm.DB) (*GORMStore, error) {
	s := &GORMStore{db: db, logger: zap.NewNop()}
	return s, db.AutoMigrate(&clientRecord{})
}

// SetLogger sets the logger used by the cleanup loop.
func (s *GORMStore) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Get retrieves the data associated with the given key. Returns the data,
// a boolean indicating whether the key was found and not expired, and an
// error.
func (s *GORMStore) Get(key string) ([]byte, bool, error) {
	rec := &clientRecord{}
	tx := s.db.Where("storage_key = ? AND expires_at >= ?", key, time.Now()).Limit(1).Find(rec)
	if tx.Error != nil || tx.RowsAffected == 0 {
		return nil, false, tx.Error
	}

	return rec.Data, true, nil
}

// Set stores the data under the given key with an expiration time. If a
// record with the same key already exists, it is overwritten.
func (s *GORMStore) Set(key string, data []byte, expiresAt time.Time) error {
	rec := &clientRecord{StorageKey: key, Data: data, ExpiresAt: expiresAt}
	tx := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(rec)

	if isFull(tx.Error) {
		return fmt.Errorf("gormstore: %w: %v", shopx.ErrQuotaExceeded, tx.Error)
	}
	return tx.Error
}

// Delete removes the data associated with the given key.
func (s *GORMStore) Delete(key string) error {
	tx := s.db.Delete(&clientRecord{}, "storage_key = ?", key)
	return tx.Error
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
func (s *GORMStore) PeriodicCleanUp(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-stop:
			return
		}
	}
}

// deleteExpired removes all expired records.
func (s *GORMStore) deleteExpired() {
	tx := s.db.Delete(&clientRecord{}, "expires_at < ?", time.Now())
	if tx.Error != nil {
		s.logger.Warn("expired record cleanup failed", zap.Error(tx.Error))
	}
}

// isFull reports whether err is the dialect's "out of space" failure:
// SQLITE_FULL for sqlite, class 53 (insufficient resources) for postgres.
func isFull(err error) bool {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "SQLSTATE 53100") ||
		strings.Contains(msg, "SQLSTATE 53200")
}
