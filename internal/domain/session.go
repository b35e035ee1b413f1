// Package domain contains core domain types for the patrol assistant.
package domain

import (
	"time"
)

// Action is a resolved backend operation: the tool to invoke and the raw
// user request that produced it. Which tool a message maps to is decided
// upstream; the session machinery treats the pair as opaque.
type Action struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// Session holds per-conversation authentication state. One record exists
// per conversation identifier (phone number, anon cookie, CLI id).
type Session struct {
	ID            string
	Authenticated bool
	Token         string
	// WasAuthenticated stays true after the first successful login so a
	// later failed freshness check can be classified as expiry rather
	// than a first-time login.
	WasAuthenticated bool
	// PendingAction buffers the one request deferred while waiting for
	// credentials. Non-nil only while Authenticated is false.
	PendingAction *Action
	LastSeenAt    time.Time
	CreatedAt     time.Time
}

// Credentials is the structured result of parsing a credential-supply
// message. Both fields are always non-empty.
type Credentials struct {
	Username string
	Password string
}
