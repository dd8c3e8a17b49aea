package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventKind names an authentication transition.
type EventKind string

const (
	LoggedIn         EventKind = "LoggedIn"
	LoggedOut        EventKind = "LoggedOut"
	TokenInvalidated EventKind = "TokenInvalidated"
)

// AuthEvent is emitted by a Store on every session transition. The raw token
// never leaves the store; TokenID is a fingerprint of it.
type AuthEvent struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId"`
	TokenID   string    `json:"tokenId,omitempty"`
	UserID    uint      `json:"userId,omitempty"`
	Username  string    `json:"username,omitempty"`
	At        time.Time `json:"at"`
}

// Fingerprint returns a short stable identifier for token.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
