// Package models holds the session records the registry enforces mutual
// exclusion over.
package models

import (
	"time"

	id "sigede/pkg/domain"
)

// DeviceDescriptor identifies the client device a session was created from.
// Populated from the User-Agent by transport middleware.
type DeviceDescriptor struct {
	Platform string `json:"platform,omitempty"`
	Browser  string `json:"browser,omitempty"`
	Mobile   bool   `json:"mobile"`
	Raw      string `json:"raw,omitempty"`
}

// Session grants one device the right to act as an account until revoked.
// Invariant: at most one Session per AccountID exists in the registry.
type Session struct {
	ID         id.SessionID     `json:"session_id"`
	AccountID  id.AccountID     `json:"account_id"`
	Device     DeviceDescriptor `json:"device"`
	CreatedAt  time.Time        `json:"created_at"`
	LastSeenAt time.Time        `json:"last_seen_at"`
}

// TouchResult reports the outcome of a best-effort heartbeat. Callers may
// ignore it; a missed heartbeat never invalidates a session.
type TouchResult struct {
	Updated bool
	Err     error
}

// ValidationState is the monitor-owned failure accounting for one login.
// It is reset on any success or detected user activity and discarded at
// logout; it never persists across logins.
type ValidationState struct {
	ConsecutiveFailures int
	LastCheckedAt       time.Time
}
