package shopx

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Role is the privilege level carried by a SessionRecord.
type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Is reports whether r equals other, ignoring case.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// SessionRecord is the persisted record of who is logged in on a client.
// It is written by the login flow and only read by the guard; Name, Email
// and Token are not interpreted beyond an expiry check on Token.
type SessionRecord struct {
	Role  Role   `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Token string `json:"token,omitempty"`
}

var (
	errNoRole       = errors.New("session record has no role")
	errTokenExpired = errors.New("session token expired")
)

// ParseSessionRecord decodes a persisted session record. Records without a
// role, and records whose token is a JWT past its expiry, are rejected.
func ParseSessionRecord(data []byte) (*SessionRecord, error) {
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(rec.Role)) == "" {
		return nil, errNoRole
	}
	if tokenExpired(rec.Token, time.Now()) {
		return nil, errTokenExpired
	}
	return &rec, nil
}

// tokenExpired reports whether token is a JWT with an exp claim before now.
// Opaque tokens never expire from the client's point of view.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if _, ok := claims["exp"]; !ok {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), true)
}

// SaveSession writes rec under SessionKey.
func SaveSession(storage *Storage, rec *SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return storage.SetItem(SessionKey, data)
}

// ClearSession removes the session record.
func ClearSession(storage *Storage) error {
	return storage.RemoveItem(SessionKey)
}
