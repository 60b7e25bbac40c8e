// Package mysqlstore provides a MySQL Store implementation.
//
// MySQLStore stores, retrieves and deletes client records keyed by a
// string. Each record has an expiration time, and the store supports
// periodic cleanup of expired records. Writes rejected because a value is
// too large for its column, or because the table is full, fail with an
// error wrapping shopx.ErrQuotaExceeded.
package mysqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/go-sql-driver/mysql"
)

const (
	errDataTooLong    = 1406
	errRecordFileFull = 1114
)

type MySQLStore struct {
	db *sql.DB
}

func New(db *sql.DB) (*MySQLStore, error) {
	err := createTable(db)
	return &MySQLStore{db: db}, err
}

// Get retrieves the data associated with the given key. Returns the data,
// a boolean indicating whether the key was found and not expired, and an
// error.
func (s *MySQLStore) Get(key string) ([]byte, bool, error) {
	stmt := "SELECT data FROM client_records WHERE storage_key = ? AND UTC_TIMESTAMP(6) < expires_at"
	row := s.db.QueryRow(stmt, key)

	var data []byte
	err := row.Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores the data under the given key with an expiration time. If a
// record with the same key already exists, it is overwritten.
func (s *MySQLStore) Set(key string, data []byte, expiresAt time.Time) error {
	stmt := "INSERT INTO client_records(storage_key, data, expires_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data), expires_at = VALUES(expires_at)"
	_, err := s.db.Exec(stmt, key, data, expiresAt.UTC())
	if isFull(err) {
		return fmt.Errorf("mysqlstore: %w: %v", shopx.ErrQuotaExceeded, err)
	}
	return err
}

// Delete removes the data associated with the given key.
func (s *MySQLStore) Delete(key string) error {
	stmt := "DELETE FROM client_records WHERE storage_key = ?"
	_, err := s.db.Exec(stmt, key)
	return err
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
func (s *MySQLStore) PeriodicCleanUp(interval time.Duration, stop <-chan struct{}) {
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
func (s *MySQLStore) deleteExpired() {
	stmt := "DELETE FROM client_records WHERE UTC_TIMESTAMP(6) > expires_at"
	s.db.Exec(stmt)
}

func isFull(err error) bool {
	var merr *mysql.MySQLError
	if !errors.As(err, &merr) {
		return false
	}
	return merr.Number == errDataTooLong || merr.Number == errRecordFileFull
}

func createTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS client_records (
			storage_key VARCHAR(128) COLLATE utf8mb4_bin PRIMARY KEY,
			data MEDIUMBLOB NOT NULL,
			expires_at TIMESTAMP(6) NOT NULL,
			INDEX client_records_expires_at_idx (expires_at)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}
